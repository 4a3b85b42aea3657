package cmd

import (
	"github.com/spf13/viper"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/session"
)

const (
	keyQuorum      = "quorum"
	keyEpoch       = "epoch"
	keyVantageA    = "vantage-a"
	keyVantageB    = "vantage-b"
	keyReplicas    = "replicas"
	keyMode        = "mode"
	keyWindow      = "window"
	keyDatadir     = "datadir"
	keyMetricsPort = "metrics-port"
	keyHTTPAddr    = "http-addr"
	keyLogLevel    = "loglevel"
)

// sessionConfig maps the configuration keys to a session configuration.
func sessionConfig(v *viper.Viper) (session.Config, error) {
	mode, err := session.ParseMode(v.GetString(keyMode))
	if err != nil {
		return session.Config{}, model.NewConfigurationErrorf("invalid %s: %w", keyMode, err)
	}

	var replicas []model.ReplicaID
	for _, r := range v.GetStringSlice(keyReplicas) {
		replicas = append(replicas, model.ReplicaID(r))
	}

	return session.Config{
		Quorum:     v.GetUint(keyQuorum),
		Epoch:      v.GetUint64(keyEpoch),
		VantageA:   model.ReplicaID(v.GetString(keyVantageA)),
		VantageB:   model.ReplicaID(v.GetString(keyVantageB)),
		Mode:       mode,
		WindowSize: v.GetInt(keyWindow),
		Replicas:   replicas,
	}, nil
}
