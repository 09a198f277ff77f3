// Package baglog reads and writes sensor logs stored as MCAP files and
// extracts the per-camera frame sequences the annotator works on.
package baglog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/andresmejia3/veil/internal/types"
	"github.com/foxglove/mcap/go/mcap"
)

// ErrChannelMissing is returned when a configured camera channel has no messages.
var ErrChannelMissing = errors.New("channel not found in log")

// Channel describes a channel and the schema of its messages.
type Channel struct {
	Topic           string
	MessageEncoding string
	SchemaName      string
	SchemaEncoding  string
	SchemaData      []byte
	Metadata        map[string]string
}

// Record is one message read from a log together with its channel, enough
// to write it back out.
type Record struct {
	types.Message
	Channel *Channel
}

// ChannelStats summarises one channel of a log.
type ChannelStats struct {
	Channel
	Messages uint64
	FirstLog uint64
	LastLog  uint64
}

// Reader reads messages from an MCAP file in file order.
type Reader struct {
	path string
	f    *os.File
}

// Open opens the log at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return &Reader{path: path, f: f}, nil
}

func (r *Reader) Path() string { return r.path }

func (r *Reader) Close() error { return r.f.Close() }

// Messages visits every message in file order. Returning an error from fn
// stops the walk and returns that error.
func (r *Reader) Messages(fn func(Record) error) error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind log: %w", err)
	}
	mr, err := mcap.NewReader(r.f)
	if err != nil {
		return fmt.Errorf("failed to read log %s: %w", r.path, err)
	}
	it, err := mr.Messages(mcap.UsingIndex(false))
	if err != nil {
		return fmt.Errorf("failed to iterate log %s: %w", r.path, err)
	}

	channels := make(map[uint16]*Channel)
	for {
		schema, channel, msg, err := it.Next(nil)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read message from %s: %w", r.path, err)
		}

		ch, ok := channels[channel.ID]
		if !ok {
			ch = &Channel{
				Topic:           channel.Topic,
				MessageEncoding: channel.MessageEncoding,
				Metadata:        channel.Metadata,
			}
			if schema != nil {
				ch.SchemaName = schema.Name
				ch.SchemaEncoding = schema.Encoding
				ch.SchemaData = schema.Data
			}
			channels[channel.ID] = ch
		}

		data := make([]byte, len(msg.Data))
		copy(data, msg.Data)
		rec := Record{
			Message: types.Message{
				Channel:     ch.Topic,
				Encoding:    ch.MessageEncoding,
				Sequence:    msg.Sequence,
				LogTime:     msg.LogTime,
				PublishTime: msg.PublishTime,
				Data:        data,
			},
			Channel: ch,
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Channels lists every channel of the log with message counts, sorted by topic.
func (r *Reader) Channels() ([]ChannelStats, error) {
	byTopic := make(map[string]*ChannelStats)
	err := r.Messages(func(rec Record) error {
		st, ok := byTopic[rec.Channel.Topic]
		if !ok {
			st = &ChannelStats{Channel: *rec.Channel, FirstLog: rec.LogTime}
			byTopic[rec.Channel.Topic] = st
		}
		st.Messages++
		st.FirstLog = min(st.FirstLog, rec.LogTime)
		st.LastLog = max(st.LastLog, rec.LogTime)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]ChannelStats, 0, len(byTopic))
	for _, st := range byTopic {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}

// ProfileFor returns the MCAP profile matching a message encoding.
func ProfileFor(messageEncoding string) string {
	if messageEncoding == EncodingCDR {
		return "ros2"
	}
	return "ros1"
}

// Writer writes records to a new MCAP file, registering each channel the
// first time a record on it is written.
type Writer struct {
	path     string
	f        *os.File
	w        *mcap.Writer
	channels map[string]uint16
	schemas  map[string]uint16
	seq      map[uint16]uint32
}

// Create opens a new log at path. An existing file is never overwritten.
func Create(path, profile string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("output log %s already exists", path)
		}
		return nil, fmt.Errorf("failed to create output log: %w", err)
	}
	w, err := mcap.NewWriter(f, &mcap.WriterOptions{
		Chunked:     true,
		ChunkSize:   4 * 1024 * 1024,
		Compression: mcap.CompressionZSTD,
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start output log: %w", err)
	}
	if err := w.WriteHeader(&mcap.Header{Profile: profile, Library: "veil"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write log header: %w", err)
	}
	return &Writer{
		path:     path,
		f:        f,
		w:        w,
		channels: make(map[string]uint16),
		schemas:  make(map[string]uint16),
		seq:      make(map[uint16]uint32),
	}, nil
}

func (w *Writer) Path() string { return w.path }

// Write appends rec under its channel. Data and timestamps are written as given.
func (w *Writer) Write(rec Record) error {
	id, err := w.channelID(rec.Channel)
	if err != nil {
		return err
	}
	w.seq[id]++
	msg := &mcap.Message{
		ChannelID:   id,
		Sequence:    w.seq[id],
		LogTime:     rec.LogTime,
		PublishTime: rec.PublishTime,
		Data:        rec.Data,
	}
	if err := w.w.WriteMessage(msg); err != nil {
		return fmt.Errorf("failed to write message on %s: %w", rec.Channel.Topic, err)
	}
	return nil
}

func (w *Writer) channelID(ch *Channel) (uint16, error) {
	if id, ok := w.channels[ch.Topic]; ok {
		return id, nil
	}

	var schemaID uint16
	if ch.SchemaName != "" {
		key := ch.SchemaEncoding + "|" + ch.SchemaName
		id, ok := w.schemas[key]
		if !ok {
			id = uint16(len(w.schemas) + 1)
			err := w.w.WriteSchema(&mcap.Schema{
				ID:       id,
				Name:     ch.SchemaName,
				Encoding: ch.SchemaEncoding,
				Data:     ch.SchemaData,
			})
			if err != nil {
				return 0, fmt.Errorf("failed to write schema %s: %w", ch.SchemaName, err)
			}
			w.schemas[key] = id
		}
		schemaID = id
	}

	id := uint16(len(w.channels))
	metadata := ch.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	err := w.w.WriteChannel(&mcap.Channel{
		ID:              id,
		SchemaID:        schemaID,
		Topic:           ch.Topic,
		MessageEncoding: ch.MessageEncoding,
		Metadata:        metadata,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write channel %s: %w", ch.Topic, err)
	}
	w.channels[ch.Topic] = id
	return id, nil
}

// Close finishes the file, writing its summary and footer.
func (w *Writer) Close() error {
	if err := w.w.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to finish output log: %w", err)
	}
	return w.f.Close()
}
