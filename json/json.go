// Package json encodes thread registries and message lists for the durable
// store, and whole threads for export files.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/drip"
)

const version = 1

// registryEnvelope is the v1 wire format for the thread registry.
type registryEnvelope struct {
	Version int        `json:"version"`
	Threads []entryDTO `json:"threads"`
}

// messagesEnvelope is the v1 wire format for one thread's message list.
type messagesEnvelope struct {
	Version  int          `json:"version"`
	Messages []messageDTO `json:"messages"`
}

// threadEnvelope is the v1 wire format for an exported thread.
type threadEnvelope struct {
	Version     int          `json:"version"`
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	TitleLocked bool         `json:"titleLocked"`
	Messages    []messageDTO `json:"messages"`
}

type entryDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	UpdatedAt   time.Time `json:"updatedAt"`
	TitleLocked bool      `json:"titleLocked"`
}

type messageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MarshalRegistry serializes a registry in v1 envelope format.
func MarshalRegistry(r drip.Registry) ([]byte, error) {
	env := registryEnvelope{Version: version, Threads: make([]entryDTO, len(r))}
	for i, e := range r {
		env.Threads[i] = entryDTO(e)
	}
	return json.Marshal(env)
}

// UnmarshalRegistry deserializes a registry. Both the v1 envelope and a
// bare array of entries are accepted.
func UnmarshalRegistry(data []byte) (drip.Registry, error) {
	var dtos []entryDTO
	if isArray(data) {
		if err := json.Unmarshal(data, &dtos); err != nil {
			return nil, fmt.Errorf("unmarshal registry: %w", err)
		}
	} else {
		var env registryEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("unmarshal registry envelope: %w", err)
		}
		if env.Version != version {
			return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
		}
		dtos = env.Threads
	}
	r := make(drip.Registry, len(dtos))
	for i, dto := range dtos {
		if dto.ID == "" {
			return nil, fmt.Errorf("thread %d: missing id", i)
		}
		r[i] = drip.ThreadEntry(dto)
	}
	return r, nil
}

// MarshalMessages serializes a message list in v1 envelope format.
func MarshalMessages(msgs []drip.Message) ([]byte, error) {
	dtos, err := marshalMessages(msgs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messagesEnvelope{Version: version, Messages: dtos})
}

// UnmarshalMessages deserializes a message list. Both the v1 envelope and a
// bare array of messages are accepted.
func UnmarshalMessages(data []byte) ([]drip.Message, error) {
	var dtos []messageDTO
	if isArray(data) {
		if err := json.Unmarshal(data, &dtos); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
	} else {
		var env messagesEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("unmarshal messages envelope: %w", err)
		}
		if env.Version != version {
			return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
		}
		dtos = env.Messages
	}
	return unmarshalMessages(dtos)
}

// MarshalThread serializes a whole thread in v1 envelope format.
func MarshalThread(t drip.Thread) ([]byte, error) {
	dtos, err := marshalMessages(t.Messages)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(threadEnvelope{
		Version:     version,
		ID:          t.ID,
		Title:       t.Title,
		UpdatedAt:   t.UpdatedAt,
		TitleLocked: t.TitleLocked,
		Messages:    dtos,
	}, "", "  ")
}

// UnmarshalThread deserializes a whole thread in v1 envelope format.
func UnmarshalThread(data []byte) (drip.Thread, error) {
	var env threadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return drip.Thread{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != version {
		return drip.Thread{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs, err := unmarshalMessages(env.Messages)
	if err != nil {
		return drip.Thread{}, err
	}
	return drip.Thread{
		ID:          env.ID,
		Title:       env.Title,
		UpdatedAt:   env.UpdatedAt,
		TitleLocked: env.TitleLocked,
		Messages:    msgs,
	}, nil
}

// Save writes a thread to a JSON file, creating parent directories as needed.
func Save(path string, t drip.Thread) error {
	data, err := MarshalThread(t)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a thread from a JSON file.
func Load(path string) (drip.Thread, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return drip.Thread{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalThread(data)
}

func marshalMessages(msgs []drip.Message) ([]messageDTO, error) {
	dtos := make([]messageDTO, len(msgs))
	for i, m := range msgs {
		if err := drip.ValidateMessage(m); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		dtos[i] = messageDTO{Role: string(m.Role), Content: m.Content}
	}
	return dtos, nil
}

func unmarshalMessages(dtos []messageDTO) ([]drip.Message, error) {
	msgs := make([]drip.Message, len(dtos))
	for i, dto := range dtos {
		m := drip.Message{Role: drip.Role(dto.Role), Content: dto.Content}
		if err := drip.ValidateMessage(m); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = m
	}
	return msgs, nil
}

func isArray(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '['
}
