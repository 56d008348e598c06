package plugin

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mitchellh/mapstructure"
)

const (
	// DefaultInsName is the tag for the default plugin instance.
	DefaultInsName = "default"
)

var (
	ErrPluginNotFound      = errors.New("plugin not found")
	ErrDuplicatePlugin     = errors.New("duplicate plugin")
	ErrInvalidConfigFormat = errors.New("invalid config format")
	ErrConfigDecode        = errors.New("config decode error")
	ErrFactorySetup        = errors.New("factory setup error")
)

type instance struct {
	factory Factory
	plugin  Plugin
}

// Manager owns plugin factories and the instances built from configuration.
type Manager struct {
	factories map[Type]map[string]Factory
	plugins   map[Type]map[string]instance
	order     []instance
	lock      sync.RWMutex
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		factories: make(map[Type]map[string]Factory),
		plugins:   make(map[Type]map[string]instance),
	}
}

// RegisterFactory registers a plugin factory with the manager.
func (m *Manager) RegisterFactory(f Factory) {
	m.lock.Lock()
	defer m.lock.Unlock()

	factories, ok := m.factories[f.Type()]
	if !ok {
		factories = make(map[string]Factory)
		m.factories[f.Type()] = factories
	}
	factories[f.Name()] = f
}

// SetupPlugins builds every instance described by pluginConf, which is the
// `plugin` settings section: type -> implementation name -> raw config.
// Instances are keyed by their `tag` field, falling back to the
// implementation name. Types without a registered factory are skipped.
func (m *Manager) SetupPlugins(pluginConf map[string]any) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	typeNames := make([]string, 0, len(pluginConf))
	for typeName := range pluginConf {
		typeNames = append(typeNames, typeName)
	}
	slices.Sort(typeNames)

	for _, typeName := range typeNames {
		pluginType := Type(typeName)
		factories, ok := m.factories[pluginType]
		if !ok {
			continue
		}

		pluginsMap, ok := pluginConf[typeName].(map[string]any)
		if !ok {
			return fmt.Errorf("%w for plugin type '%s'", ErrInvalidConfigFormat, pluginType)
		}

		names := make([]string, 0, len(pluginsMap))
		for name := range pluginsMap {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			if err := m.setupOne(pluginType, factories, name, pluginsMap[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manager) setupOne(pluginType Type, factories map[string]Factory, name string, config any) error {
	factory, ok := factories[name]
	if !ok {
		return fmt.Errorf("%w: plugin factory not found for type '%s' and name '%s'", ErrPluginNotFound, pluginType, name)
	}

	configMap, ok := config.(map[string]any)
	if !ok {
		if config != nil {
			return fmt.Errorf("%w for plugin '%s':'%s'", ErrInvalidConfigFormat, pluginType, name)
		}
		configMap = map[string]any{}
	}

	targetConfig := factory.ConfigType()
	if targetConfig == nil {
		return fmt.Errorf("%w: plugin factory '%s':'%s' did not provide a configuration type", ErrInvalidConfigFormat, pluginType, name)
	}

	// Settings values may arrive as strings from the environment.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           targetConfig,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create config decoder for plugin '%s':'%s': %v", ErrConfigDecode, pluginType, name, err)
	}
	if err := decoder.Decode(configMap); err != nil {
		return fmt.Errorf("%w: failed to decode config for plugin '%s':'%s': %v", ErrConfigDecode, pluginType, name, err)
	}

	key := name
	if tag, ok := configMap["tag"].(string); ok && tag != "" {
		key = tag
	}
	if _, exists := m.plugins[pluginType][key]; exists {
		return fmt.Errorf("%w: duplicate plugin tag/name '%s' for type '%s'", ErrDuplicatePlugin, key, pluginType)
	}

	ins, err := factory.Setup(targetConfig)
	if err != nil {
		return fmt.Errorf("%w: failed to setup plugin '%s':'%s': %v", ErrFactorySetup, pluginType, name, err)
	}

	if _, ok := m.plugins[pluginType]; !ok {
		m.plugins[pluginType] = make(map[string]instance)
	}
	in := instance{factory: factory, plugin: ins}
	m.plugins[pluginType][key] = in
	m.order = append(m.order, in)
	return nil
}

// GetPlugin returns the instance registered under name (its tag or
// implementation name).
func (m *Manager) GetPlugin(typ Type, name string) (Plugin, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	plugins, ok := m.plugins[typ]
	if !ok {
		return nil, fmt.Errorf("%w: no plugins found for type '%s'", ErrPluginNotFound, typ)
	}

	in, ok := plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: plugin '%s' not found for type '%s'", ErrPluginNotFound, name, typ)
	}
	return in.plugin, nil
}

// GetDefaultPlugin returns the instance tagged DefaultInsName.
func (m *Manager) GetDefaultPlugin(typ Type) (Plugin, error) {
	return m.GetPlugin(typ, DefaultInsName)
}

// Plugins returns every instance of typ in setup order.
func (m *Manager) Plugins(typ Type) []Plugin {
	m.lock.RLock()
	defer m.lock.RUnlock()

	var out []Plugin
	for _, in := range m.order {
		if in.factory.Type() == typ {
			out = append(out, in.plugin)
		}
	}
	return out
}

// DestroyPlugins destroys every instance in reverse setup order.
func (m *Manager) DestroyPlugins() {
	m.lock.Lock()
	order := m.order
	m.order = nil
	m.plugins = make(map[Type]map[string]instance)
	m.lock.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		order[i].factory.Destroy(order[i].plugin)
	}
}
