package plugin

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockConfig is the structured config the mock factory asks for.
type MockConfig struct {
	Tag     string        `mapstructure:"tag"`
	Root    string        `mapstructure:"root"`
	ReadMB  int           `mapstructure:"readMB"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MockFactory records what the manager asked of it.
type MockFactory struct {
	PType    Type
	PName    string
	SetupErr error

	Configs   []*MockConfig
	Destroyed []Plugin
	destroyed *[]string
}

func (m *MockFactory) Type() Type      { return m.PType }
func (m *MockFactory) Name() string    { return m.PName }
func (m *MockFactory) ConfigType() any { return &MockConfig{} }
func (m *MockFactory) Setup(config any) (Plugin, error) {
	if m.SetupErr != nil {
		return nil, m.SetupErr
	}
	cfg := config.(*MockConfig)
	m.Configs = append(m.Configs, cfg)
	return &MockPlugin{FName: m.PName}, nil
}
func (m *MockFactory) Destroy(p Plugin) {
	m.Destroyed = append(m.Destroyed, p)
	if m.destroyed != nil {
		*m.destroyed = append(*m.destroyed, m.PName)
	}
}

// MockPlugin is a mock plugin instance.
type MockPlugin struct {
	FName string
}

func (mp *MockPlugin) FactoryName() string {
	return mp.FName
}

func TestManager(t *testing.T) {
	t.Run("RegisterFactory", func(t *testing.T) {
		factory := &MockFactory{PType: Storage, PName: "memory"}
		manager := NewManager()
		manager.RegisterFactory(factory)
		assert.Equal(t, factory, manager.factories[Storage]["memory"])
	})

	t.Run("SetupAndGetPlugins", func(t *testing.T) {
		manager := NewManager()
		osFactory := &MockFactory{PType: Storage, PName: "os"}
		memFactory := &MockFactory{PType: Storage, PName: "memory"}
		manager.RegisterFactory(osFactory)
		manager.RegisterFactory(memFactory)

		err := manager.SetupPlugins(map[string]any{
			"storage": map[string]any{
				"os": map[string]any{
					"tag":     "default",
					"root":    "/tmp/eosemu",
					"readMB":  "4",
					"timeout": "2s",
				},
				"memory": nil,
			},
			"unknown": map[string]any{"x": map[string]any{}},
		})
		require.NoError(t, err)

		p, err := manager.GetDefaultPlugin(Storage)
		require.NoError(t, err)
		assert.Equal(t, "os", p.FactoryName())

		require.Len(t, osFactory.Configs, 1)
		assert.Equal(t, "/tmp/eosemu", osFactory.Configs[0].Root)
		assert.Equal(t, 4, osFactory.Configs[0].ReadMB)
		assert.Equal(t, 2*time.Second, osFactory.Configs[0].Timeout)

		mp, err := manager.GetPlugin(Storage, "memory")
		require.NoError(t, err)
		assert.Equal(t, "memory", mp.FactoryName())

		assert.Len(t, manager.Plugins(Storage), 2)
		assert.Empty(t, manager.Plugins(Metrics))

		_, err = manager.GetPlugin(Metrics, "prometheus")
		assert.ErrorIs(t, err, ErrPluginNotFound)
	})

	t.Run("ErrorOnDuplicateTag", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(&MockFactory{PType: Storage, PName: "os"})
		manager.RegisterFactory(&MockFactory{PType: Storage, PName: "memory"})

		err := manager.SetupPlugins(map[string]any{
			"storage": map[string]any{
				"os":     map[string]any{"tag": "default"},
				"memory": map[string]any{"tag": "default"},
			},
		})
		assert.ErrorIs(t, err, ErrDuplicatePlugin)
	})

	t.Run("ErrorOnMissingFactory", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(&MockFactory{PType: Storage, PName: "os"})

		err := manager.SetupPlugins(map[string]any{
			"storage": map[string]any{"s3": map[string]any{}},
		})
		assert.ErrorIs(t, err, ErrPluginNotFound)
	})

	t.Run("ErrorOnSetup", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(&MockFactory{PType: Storage, PName: "os", SetupErr: errors.New("no disk")})

		err := manager.SetupPlugins(map[string]any{
			"storage": map[string]any{"os": map[string]any{}},
		})
		assert.ErrorIs(t, err, ErrFactorySetup)
	})

	t.Run("ConfigDecoding", func(t *testing.T) {
		t.Run("InvalidType", func(t *testing.T) {
			manager := NewManager()
			manager.RegisterFactory(&MockFactory{PType: Storage, PName: "os"})

			err := manager.SetupPlugins(map[string]any{
				"storage": map[string]any{
					"os": map[string]any{"root": map[string]any{"nested": 1}},
				},
			})
			assert.ErrorIs(t, err, ErrConfigDecode)
		})

		t.Run("InvalidFormat", func(t *testing.T) {
			manager := NewManager()
			manager.RegisterFactory(&MockFactory{PType: Storage, PName: "os"})

			err := manager.SetupPlugins(map[string]any{"storage": "not-a-map"})
			assert.ErrorIs(t, err, ErrInvalidConfigFormat)

			err = manager.SetupPlugins(map[string]any{
				"storage": map[string]any{"os": "not-a-map"},
			})
			assert.ErrorIs(t, err, ErrInvalidConfigFormat)
		})
	})

	t.Run("DestroyPluginsReverseOrder", func(t *testing.T) {
		var destroyed []string
		manager := NewManager()
		manager.RegisterFactory(&MockFactory{PType: Metrics, PName: "prometheus", destroyed: &destroyed})
		manager.RegisterFactory(&MockFactory{PType: Storage, PName: "os", destroyed: &destroyed})

		require.NoError(t, manager.SetupPlugins(map[string]any{
			"metrics": map[string]any{"prometheus": map[string]any{}},
			"storage": map[string]any{"os": map[string]any{}},
		}))

		manager.DestroyPlugins()
		assert.Equal(t, []string{"os", "prometheus"}, destroyed)
		assert.Empty(t, manager.Plugins(Storage))

		manager.DestroyPlugins()
		assert.Len(t, destroyed, 2)
	})
}
