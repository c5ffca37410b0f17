package log

import (
	"github.com/rs/zerolog"

	"github.com/agrifun/agrifun/types"
)

// Loggable is anything that can report its registered component types.
type Loggable interface {
	RegisteredComponents() []string
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.RegisteredComponents()
	zeroLoggerEvent.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, name := range components {
		arrayLogger = arrayLogger.Str(name)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

func loadEntityIntoEvent(
	zeroLoggerEvent *zerolog.Event, entityID types.EntityID, archetype string, components []string,
) *zerolog.Event {
	arrayLogger := zerolog.Arr()
	for _, name := range components {
		arrayLogger = arrayLogger.Str(name)
	}
	zeroLoggerEvent.Array("components", arrayLogger)
	zeroLoggerEvent.Str("entity_id", string(entityID))
	return zeroLoggerEvent.Str("archetype", archetype)
}

// Components logs every registered component type on the target.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// Entity logs one entity's archetype membership and component set.
func Entity(
	logger *zerolog.Logger, level zerolog.Level, entityID types.EntityID, archetype string, components []string,
) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadEntityIntoEvent(zeroLoggerEvent, entityID, archetype, components)
	zeroLoggerEvent.Send()
}
