package world

import (
	"github.com/yohamta/donburi"

	"spatial-radio/internal/radio"
)

// EmitterData places an entity in the world.
type EmitterData struct {
	Dimension string
	Pos       radio.BlockPos
	Priority  radio.Priority
}

// RadioData is the server-authoritative state of a source.
type RadioData struct {
	URL     string
	Playing bool
	Volume  int
}

// SpeakerData is a relay: an optional link to a radio and the state copied
// from it on the last refresh.
type SpeakerData struct {
	Link    *Link
	URL     string
	Playing bool
	Volume  int
}

// Link points a speaker at a radio, possibly in another dimension.
type Link struct {
	Dimension string         `json:"dimension"`
	Pos       radio.BlockPos `json:"pos"`
}

var (
	Emitter = donburi.NewComponentType[EmitterData]()
	Radio   = donburi.NewComponentType[RadioData]()
	Speaker = donburi.NewComponentType[SpeakerData]()
)

func emptySpeakerCache(link *Link) SpeakerData {
	return SpeakerData{Link: link, Volume: 100}
}
