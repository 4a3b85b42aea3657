package pubsub

import (
	"sync"

	"github.com/onflow/hotstuff-forensics/consensus/forensics"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
)

type OnConflictDetectedConsumer = func(event *model.ConflictEvent)
type OnRoundSummaryConsumer = func(summary model.RoundSummary)

// Distributor subscribes to the notifications of a forensic session and
// distributes them to subscribers.
type Distributor struct {
	conflictConsumers    []forensics.ConflictConsumer
	diagnosticsConsumers []forensics.DiagnosticsConsumer
	roundConsumers       []forensics.RoundConsumer
	onConflictDetected   []OnConflictDetectedConsumer
	onRoundSummary       []OnRoundSummaryConsumer
	lock                 sync.RWMutex
}

var _ forensics.Consumer = (*Distributor)(nil)

func NewDistributor() *Distributor {
	return &Distributor{}
}

// AddConsumer subscribes the consumer to every notification.
func (d *Distributor) AddConsumer(consumer forensics.Consumer) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.conflictConsumers = append(d.conflictConsumers, consumer)
	d.diagnosticsConsumers = append(d.diagnosticsConsumers, consumer)
	d.roundConsumers = append(d.roundConsumers, consumer)
}

func (d *Distributor) AddConflictConsumer(consumer forensics.ConflictConsumer) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.conflictConsumers = append(d.conflictConsumers, consumer)
}

func (d *Distributor) AddDiagnosticsConsumer(consumer forensics.DiagnosticsConsumer) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.diagnosticsConsumers = append(d.diagnosticsConsumers, consumer)
}

func (d *Distributor) AddRoundConsumer(consumer forensics.RoundConsumer) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.roundConsumers = append(d.roundConsumers, consumer)
}

func (d *Distributor) AddOnConflictDetectedConsumer(consumer OnConflictDetectedConsumer) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.onConflictDetected = append(d.onConflictDetected, consumer)
}

func (d *Distributor) AddOnRoundSummaryConsumer(consumer OnRoundSummaryConsumer) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.onRoundSummary = append(d.onRoundSummary, consumer)
}

func (d *Distributor) OnConflictDetected(event *model.ConflictEvent) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, consumer := range d.conflictConsumers {
		consumer.OnConflictDetected(event)
	}
	for _, consumer := range d.onConflictDetected {
		consumer(event)
	}
}

func (d *Distributor) OnConflictingDuplicate(err model.ConflictingDuplicateError) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, consumer := range d.diagnosticsConsumers {
		consumer.OnConflictingDuplicate(err)
	}
}

func (d *Distributor) OnEpochMismatch(err model.EpochMismatchError) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, consumer := range d.diagnosticsConsumers {
		consumer.OnEpochMismatch(err)
	}
}

func (d *Distributor) OnAttributionEmpty(err model.AttributionEmptyError) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, consumer := range d.diagnosticsConsumers {
		consumer.OnAttributionEmpty(err)
	}
}

func (d *Distributor) OnAnalysisInconclusive(err model.InconsistentWindowError) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, consumer := range d.diagnosticsConsumers {
		consumer.OnAnalysisInconclusive(err)
	}
}

func (d *Distributor) OnRoundSummary(summary model.RoundSummary) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, consumer := range d.roundConsumers {
		consumer.OnRoundSummary(summary)
	}
	for _, consumer := range d.onRoundSummary {
		consumer(summary)
	}
}
