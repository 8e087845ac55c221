package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nretrack/internal/domain"
)

const (
	// DefaultPort is used when config.json is missing or has no port.
	DefaultPort = 3001

	configName = "config.json"
)

// AppConfig models config.json: the server listen port (applied on
// restart only) and the dropdown option lists.
type AppConfig struct {
	Port  int                    `json:"port"`
	Lists domain.DropdownOptions `json:"lists"`
}

// DefaultLists returns the seeded dropdown options used when no
// configuration exists yet.
func DefaultLists() domain.DropdownOptions {
	return domain.DropdownOptions{
		Owners: []string{
			"唐晓磊", "付帅", "陈雯雯", "林源", "陈名舜", "林道疆", "林栎雨",
			"于国杰", "吴和志", "郑宏林", "李志雄", "朱成华", "林杰君", "任奕霖",
		},
		DeviceTypes: []string{
			"NLS-MT93", "NLS-MT95", "NLS-NQuire", "NLS-N7", "NLS-MT67",
			"NLS-NFT10", "NLS-NW30", "NLS-WD1", "NLS-WD5",
		},
		Platforms: []string{
			"Unisoc 7885", "Mediatek 8781", "Mediatek 8786", "Mediatek 8791",
			"Mediatek 6762", "Qualcomm 6490", "Qualcomm 6690",
		},
		AndroidVersions: []string{
			"Android 9", "Android 10", "Android 11", "Android 12",
			"Android 13", "Android 14", "Android 15", "Android 16", "Android 17",
		},
		TaskTypes: []string{
			"维护任务", "国内NRE", "海外NRE", "技术预研", "临时任务", "新项目",
		},
	}
}

// Default returns the configuration used when config.json is absent.
func Default() AppConfig {
	return AppConfig{Port: DefaultPort, Lists: DefaultLists()}
}

// Path returns the config file path for a data directory.
func Path(dataDir string) string {
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, configName)
}

// Manager owns config.json for a data directory. All mutation goes
// through read-modify-write with an atomic file replace; a process-wide
// mutex keeps concurrent API writes from interleaving.
type Manager struct {
	mu   sync.Mutex
	path string
}

// NewManager ensures dataDir exists and that config.json is seeded with
// defaults, mirroring what a first run creates.
func NewManager(dataDir string) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	m := &Manager{path: Path(dataDir)}
	cfg, err := m.read()
	if err != nil {
		return nil, err
	}
	if err := m.write(cfg); err != nil {
		return nil, fmt.Errorf("seed config: %w", err)
	}
	return m, nil
}

// Load returns the current configuration merged with defaults.
func (m *Manager) Load() (AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read()
}

// SetPort persists a new listen port. The running server keeps its
// current port; the change applies on restart.
func (m *Manager) SetPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	return m.update(func(cfg *AppConfig) { cfg.Port = port })
}

// SetLists replaces the dropdown option lists. Stored tasks referencing
// removed values are intentionally left untouched.
func (m *Manager) SetLists(lists domain.DropdownOptions) error {
	return m.update(func(cfg *AppConfig) { cfg.Lists = lists })
}

func (m *Manager) update(fn func(*AppConfig)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, err := m.read()
	if err != nil {
		return err
	}
	fn(&cfg)
	return m.write(cfg)
}

// read loads config.json, filling gaps from defaults so a hand-edited or
// older file still yields a complete structure.
func (m *Manager) read() (AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	var loaded AppConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("invalid config json: %w", err)
	}
	if loaded.Port > 0 {
		cfg.Port = loaded.Port
	}
	cfg.Lists = mergeLists(cfg.Lists, loaded.Lists)
	return cfg, nil
}

// write replaces config.json via temp file + rename so a crash mid-write
// never leaves a truncated config behind.
func (m *Manager) write(cfg AppConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

func mergeLists(def, loaded domain.DropdownOptions) domain.DropdownOptions {
	if loaded.Owners != nil {
		def.Owners = loaded.Owners
	}
	if loaded.DeviceTypes != nil {
		def.DeviceTypes = loaded.DeviceTypes
	}
	if loaded.Platforms != nil {
		def.Platforms = loaded.Platforms
	}
	if loaded.AndroidVersions != nil {
		def.AndroidVersions = loaded.AndroidVersions
	}
	if loaded.TaskTypes != nil {
		def.TaskTypes = loaded.TaskTypes
	}
	return def
}
