package storage

import (
	"encoding/json"
)

const masterVolumeKey = "master_volume"

type savedSettings struct {
	MasterVolume float64 `json:"masterVolume"`
}

// LoadMasterVolume returns the persisted master volume. ok is false when
// nothing has been saved yet.
func LoadMasterVolume(kv KV) (v float64, ok bool, err error) {
	data, err := kv.Load(masterVolumeKey)
	if err != nil || data == nil {
		return 0, false, err
	}
	var s savedSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, false, err
	}
	return s.MasterVolume, true, nil
}

// SaveMasterVolume persists the master volume.
func SaveMasterVolume(kv KV, v float64) error {
	data, err := json.Marshal(savedSettings{MasterVolume: v})
	if err != nil {
		return err
	}
	return kv.Save(masterVolumeKey, data)
}
