package events

import (
	"encoding/json"
	"errors"
)

// Type is the top-level discriminator of an event on the wire.
type Type string

const (
	TypeInfo   Type = "info"
	TypeLog    Type = "log"
	TypeResult Type = "result"
	// TypeDone terminates a job's stream. It is never serialised.
	TypeDone Type = "done"
)

// LogKind discriminates log events.
type LogKind string

const (
	LogCompressed LogKind = "compressed"
	LogError      LogKind = "error"
	LogMessage    LogKind = "message"
)

// PackInfo describes the source pack before any item is processed.
type PackInfo struct {
	Size       int64 `json:"size"`
	Version    int   `json:"version"`
	ItemsCount int   `json:"items_count"`
}

// LogEntry is the payload of a log event. Which fields are meaningful depends
// on Event.
type LogEntry struct {
	Event   LogKind
	Kind    string
	OldName string
	NewName string
	OldSize int64
	NewSize int64
	HasSize bool
	Message string
}

// Event is one item of a job's progress stream.
type Event struct {
	Type   Type
	Info   *PackInfo
	Log    *LogEntry
	Result string
}

// Info reports the pack size, manifest version, and number of media entries.
func Info(size int64, version, itemsCount int) Event {
	return Event{Type: TypeInfo, Info: &PackInfo{Size: size, Version: version, ItemsCount: itemsCount}}
}

// Compressed reports an asset stored under its content-addressed name.
func Compressed(kind, oldName, newName string, oldSize, newSize int64) Event {
	return Event{Type: TypeLog, Log: &LogEntry{
		Event: LogCompressed, Kind: kind, OldName: oldName, NewName: newName,
		OldSize: oldSize, NewSize: newSize, HasSize: true,
	}}
}

// ItemError reports an asset that could not be optimised. Size is the number
// of bytes carried over unchanged, zero when the asset was not found.
func ItemError(kind, name string, size int64, message string) Event {
	return Event{Type: TypeLog, Log: &LogEntry{
		Event: LogError, Kind: kind, OldName: name, OldSize: size, HasSize: true, Message: message,
	}}
}

// Failure reports an error that is not tied to a single asset.
func Failure(message string) Event {
	return Event{Type: TypeLog, Log: &LogEntry{Event: LogError, Message: message}}
}

// Message reports free-form progress text.
func Message(content string) Event {
	return Event{Type: TypeLog, Log: &LogEntry{Event: LogMessage, Message: content}}
}

// Result carries the download location of the finished pack.
func Result(url string) Event {
	return Event{Type: TypeResult, Result: url}
}

// Done terminates a job's stream.
func Done() Event {
	return Event{Type: TypeDone}
}

// IsDone reports whether e terminates the stream.
func (e Event) IsDone() bool {
	return e.Type == TypeDone
}

// ErrNotSerializable is returned when marshalling a Done event.
var ErrNotSerializable = errors.New("done event is not serializable")

type compressedJSON struct {
	Event   LogKind `json:"event"`
	Type    string  `json:"type"`
	OldName string  `json:"old_name"`
	NewName string  `json:"new_name"`
	OldSize int64   `json:"old_size"`
	NewSize int64   `json:"new_size"`
}

type errorJSON struct {
	Event LogKind `json:"event"`
	Type  string  `json:"type,omitempty"`
	Name  string  `json:"name,omitempty"`
	Size  *int64  `json:"size,omitempty"`
	Error string  `json:"error"`
}

type messageJSON struct {
	Event   LogKind `json:"event"`
	Content string  `json:"content"`
}

// MarshalJSON renders the wire shape consumed by the pack UI.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case TypeInfo:
		info := PackInfo{}
		if e.Info != nil {
			info = *e.Info
		}
		return json.Marshal(struct {
			Type Type `json:"type"`
			PackInfo
		}{Type: e.Type, PackInfo: info})
	case TypeLog:
		return json.Marshal(struct {
			Type Type `json:"type"`
			Data any  `json:"data"`
		}{Type: e.Type, Data: e.logPayload()})
	case TypeResult:
		return json.Marshal(struct {
			Type Type   `json:"type"`
			URL  string `json:"url"`
		}{Type: e.Type, URL: e.Result})
	default:
		return nil, ErrNotSerializable
	}
}

func (e Event) logPayload() any {
	entry := LogEntry{Event: LogMessage}
	if e.Log != nil {
		entry = *e.Log
	}
	switch entry.Event {
	case LogCompressed:
		return compressedJSON{
			Event: entry.Event, Type: entry.Kind, OldName: entry.OldName, NewName: entry.NewName,
			OldSize: entry.OldSize, NewSize: entry.NewSize,
		}
	case LogError:
		payload := errorJSON{Event: entry.Event, Type: entry.Kind, Name: entry.OldName, Error: entry.Message}
		if entry.HasSize {
			size := entry.OldSize
			payload.Size = &size
		}
		return payload
	default:
		return messageJSON{Event: LogMessage, Content: entry.Message}
	}
}

// Publisher accepts events for one job.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

// Publish calls f(e).
func (f PublisherFunc) Publish(e Event) { f(e) }
