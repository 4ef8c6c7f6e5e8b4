package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/death/ssh-tunnels/internal/appconfig"
	"github.com/death/ssh-tunnels/internal/model"
)

type store struct {
	LastRun map[string]int64 `json:"last_run"`
}

func filePath() (string, error) {
	dir, err := appconfig.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.json"), nil
}

// Touch records a successful run for a tunnel name.
func Touch(name string) error {
	st, err := load()
	if err != nil {
		return err
	}
	if st.LastRun == nil {
		st.LastRun = map[string]int64{}
	}
	st.LastRun[name] = time.Now().Unix()
	return save(st)
}

// LastRun returns last run timestamps by tunnel name.
func LastRun() (map[string]int64, error) {
	st, err := load()
	if err != nil {
		return nil, err
	}
	return st.LastRun, nil
}

// SortTunnelsRecent returns a new slice sorted by recent runs (desc),
// then name. Configuration order is not meaningful for display once
// history exists; endpoint lookup still uses the original order.
func SortTunnelsRecent(tunnels []model.TunnelConfig, lastRun map[string]int64) []model.TunnelConfig {
	out := append([]model.TunnelConfig(nil), tunnels...)
	sort.SliceStable(out, func(i, j int) bool {
		ti := lastRun[out[i].Name]
		tj := lastRun[out[j].Name]
		if ti != tj {
			return ti > tj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func load() (store, error) {
	path, err := filePath()
	if err != nil {
		return store{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store{}, nil
		}
		return store{}, err
	}
	var st store
	if err := json.Unmarshal(b, &st); err != nil {
		return store{}, err
	}
	return st, nil
}

func save(st store) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
