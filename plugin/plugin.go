package plugin

// Type is the kind of plugin a factory produces.
type Type string

const (
	// Storage plugins provide the filesystem backend of the storage services.
	Storage Type = "storage"

	// Metrics plugins provide metric reporters.
	Metrics Type = "metrics"
)

// Factory builds plugin instances of one implementation.
type Factory interface {
	// Type returns the plugin type.
	Type() Type
	// Name returns the name of the plugin implementation.
	Name() string
	// ConfigType returns a pointer to an empty configuration struct.
	// The manager decodes the raw config into it with mapstructure.
	ConfigType() any
	// Setup creates an instance from the decoded configuration.
	Setup(any) (Plugin, error)
	// Destroy releases an instance created by Setup.
	Destroy(Plugin)
}

// Plugin is a live instance created by a Factory.
type Plugin interface {
	FactoryName() string
}
