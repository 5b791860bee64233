package storage

import (
	"testing"
)

func TestMemoryKV_LoadMissing(t *testing.T) {
	kv := NewMemoryKV()
	data, err := kv.Load("nope")
	if err != nil || data != nil {
		t.Errorf("Load missing = %v, %v; want nil, nil", data, err)
	}
}

func TestMemoryKV_SaveLoadDelete(t *testing.T) {
	kv := NewMemoryKV()
	in := []byte("hello")
	if err := kv.Save("k", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	in[0] = 'j' // caller mutation must not leak into the store

	got, err := kv.Load("k")
	if err != nil || string(got) != "hello" {
		t.Errorf("Load = %q, %v; want hello", got, err)
	}

	if err := kv.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if kv.Len() != 0 {
		t.Errorf("Len after delete = %d, want 0", kv.Len())
	}
}

func TestMasterVolume_roundTrip(t *testing.T) {
	kv := NewMemoryKV()
	if _, ok, err := LoadMasterVolume(kv); ok || err != nil {
		t.Fatalf("LoadMasterVolume on empty store: ok=%v err=%v", ok, err)
	}
	if err := SaveMasterVolume(kv, 0.35); err != nil {
		t.Fatalf("SaveMasterVolume: %v", err)
	}
	v, ok, err := LoadMasterVolume(kv)
	if err != nil || !ok || v != 0.35 {
		t.Errorf("LoadMasterVolume = %v, %v, %v; want 0.35, true, nil", v, ok, err)
	}
}

func TestMasterVolume_corruptData(t *testing.T) {
	kv := NewMemoryKV()
	_ = kv.Save(masterVolumeKey, []byte("{not json"))
	if _, _, err := LoadMasterVolume(kv); err == nil {
		t.Error("expected error for corrupt settings blob")
	}
}
