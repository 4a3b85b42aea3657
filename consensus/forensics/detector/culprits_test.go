package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/utils/unittest"
)

func TestAttribute_Empty(t *testing.T) {
	ids := unittest.ReplicaIDs(6)
	conflict := &model.Conflict{
		Kind:   model.WithinView,
		Round:  2,
		First:  unittest.RecordFixture(unittest.WithRound(2), unittest.WithSigners(ids[0:3]...)),
		Second: unittest.RecordFixture(unittest.WithRound(2), unittest.WithSigners(ids[3:6]...)),
	}
	culprits, err := Attribute(conflict)
	assert.Nil(t, culprits)
	require.True(t, model.IsAttributionEmptyError(err))

	var empty model.AttributionEmptyError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, model.WithinView, empty.Kind)
	assert.Equal(t, conflict.First.Key(), empty.First)
}

func TestAttribute_EpochMismatch(t *testing.T) {
	conflict := &model.Conflict{
		Kind:   model.WithinView,
		First:  unittest.RecordFixture(unittest.WithEpoch(1)),
		Second: unittest.RecordFixture(unittest.WithEpoch(2)),
	}
	_, err := Attribute(conflict)
	require.True(t, model.IsEpochMismatchError(err))
}

// TestAttribute_Property checks that culprits signed both certificates and that
// two quorums of 3 out of 4 replicas always share at least 2 of them.
func TestAttribute_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		first := unittest.SignerSetGenerator(4, 3, 4).Draw(t, "first")
		second := unittest.SignerSetGenerator(4, 3, 4).Draw(t, "second")
		conflict := &model.Conflict{
			Kind:   model.WithinView,
			First:  unittest.RecordFixture(unittest.WithSigners(first...)),
			Second: unittest.RecordFixture(unittest.WithSigners(second...)),
		}

		culprits, err := Attribute(conflict)
		require.NoError(t, err)
		require.GreaterOrEqual(t, culprits.Len(), 2)
		require.True(t, culprits.IsSubsetOf(model.NewSignerSet(first...)))
		require.True(t, culprits.IsSubsetOf(model.NewSignerSet(second...)))
		for _, id := range first {
			if model.NewSignerSet(second...).Contains(id) {
				require.True(t, culprits.Contains(id))
			}
		}
	})
}
