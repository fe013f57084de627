package kraken

import (
	"encoding/json"

	"github.com/spooky-finn/go-kraken-bridge/domain"
)

type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindSnapshot
	KindUpdate
	KindSystem
)

// BookMessage is the tagged result of classifying one text frame. Exactly
// one of Snapshot/Update is set for the book kinds; Event carries the
// "event" field of system frames.
type BookMessage struct {
	Kind     MessageKind
	Channel  string
	Pair     string
	Snapshot *domain.BookSnapshot
	Update   *domain.BookUpdate
	Event    string
	Raw      []byte
}

// bookPayload covers both wire forms: "as"/"bs" appear only in the initial
// snapshot, "a"/"b"/"c" only in incremental updates.
type bookPayload struct {
	Asks         [][]string `json:"a"`
	Bids         [][]string `json:"b"`
	SnapshotAsks [][]string `json:"as"`
	SnapshotBids [][]string `json:"bs"`
	Checksum     string     `json:"c"`
}

type systemEvent struct {
	Event string `json:"event"`
}

// ClassifyMessage inspects a decoded frame and routes it to one of the four
// message kinds. Classification never fails: frames that fit no known shape
// come back as KindUnknown so the caller can report and move on.
//
// Book frames are arrays [channelID, payload..., channelName, pair]. The
// feed occasionally splits an update's ask and bid diffs across two payload
// objects in one frame; all object elements are merged before deciding.
func ClassifyMessage(frame []byte) *BookMessage {
	msg := &BookMessage{Kind: KindUnknown, Raw: frame}

	var elements []json.RawMessage
	if err := json.Unmarshal(frame, &elements); err != nil {
		return classifyObject(frame, msg)
	}
	if len(elements) == 0 {
		return msg
	}

	var payload bookPayload
	sawPayload := false

	for _, element := range elements[1:] {
		var s string
		if err := json.Unmarshal(element, &s); err == nil {
			if msg.Channel == "" {
				msg.Channel = s
			} else {
				msg.Pair = s
			}
			continue
		}

		var part bookPayload
		if err := json.Unmarshal(element, &part); err != nil {
			continue
		}
		sawPayload = true
		mergePayload(&payload, &part)
	}

	if !sawPayload {
		return msg
	}

	if payload.SnapshotAsks != nil && payload.SnapshotBids != nil {
		msg.Kind = KindSnapshot
		msg.Snapshot = &domain.BookSnapshot{
			Asks: payload.SnapshotAsks,
			Bids: payload.SnapshotBids,
		}
		return msg
	}

	if payload.Asks != nil || payload.Bids != nil {
		msg.Kind = KindUpdate
		msg.Update = &domain.BookUpdate{
			Asks:     payload.Asks,
			Bids:     payload.Bids,
			Checksum: payload.Checksum,
		}
		return msg
	}

	return msg
}

func classifyObject(frame []byte, msg *BookMessage) *BookMessage {
	var event systemEvent
	if err := json.Unmarshal(frame, &event); err == nil && event.Event != "" {
		msg.Kind = KindSystem
		msg.Event = event.Event
	}

	return msg
}

func mergePayload(dst *bookPayload, src *bookPayload) {
	if src.Asks != nil {
		dst.Asks = src.Asks
	}
	if src.Bids != nil {
		dst.Bids = src.Bids
	}
	if src.SnapshotAsks != nil {
		dst.SnapshotAsks = src.SnapshotAsks
	}
	if src.SnapshotBids != nil {
		dst.SnapshotBids = src.SnapshotBids
	}
	if src.Checksum != "" {
		dst.Checksum = src.Checksum
	}
}
