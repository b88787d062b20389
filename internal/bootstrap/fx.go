package bootstrap

import "go.uber.org/fx"

// Module blocks process startup until the schema gate opens.
var Module = fx.Module("bootstrap",
	fx.Provide(NewSchemaGate),
	fx.Invoke(EnforceSchemaGate),
)
