// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so a future migration away from datadog
// only needs to edit this single file.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitTickStat reports how long the given stage of the current tick took.
func EmitTickStat(start time.Time, stage string) {
	duration := time.Since(start)
	err := Client().Timing("tick", duration, []string{stage}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit tick stat: %v", err)
	}
}

// EmitEntityCount reports the number of live entities.
func EmitEntityCount(count int) {
	err := Client().Gauge("entities", float64(count), nil, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit entity count: %v", err)
	}
}

// EmitArchetypeCount reports the number of archetypes allocated so far.
// Archetypes are never pruned, so a fast-growing gauge points at churning
// component combinations.
func EmitArchetypeCount(count int) {
	err := Client().Gauge("archetypes", float64(count), nil, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit archetype count: %v", err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("agrifun"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	// Success! replace the global client
	client = newClient
	return nil
}
