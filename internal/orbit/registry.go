package orbit

import (
	"sort"
	"sync"
)

// Membership is what Join reports for a channel.
type Membership struct {
	Name  string            `json:"name"`
	Modes map[string]string `json:"modes"`
}

type channel struct {
	name     string
	password string
	log      Log
}

// ChannelRegistry holds the channels joined in the current session, keyed by
// name. A name maps to at most one open log.
type ChannelRegistry struct {
	mu       sync.Mutex
	channels map[string]*channel
}

// NewChannelRegistry creates an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[string]*channel)}
}

// Has reports whether name is registered.
func (r *ChannelRegistry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.channels[name]
	return ok
}

// Log returns the open log of a registered channel.
func (r *ChannelRegistry) Log(name string) (Log, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	if !ok {
		return nil, false
	}
	return ch.log, true
}

// add registers a channel. It returns false, leaving the registry unchanged,
// if the name is already taken.
func (r *ChannelRegistry) add(name, password string, log Log) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[name]; ok {
		return false
	}
	r.channels[name] = &channel{name: name, password: password, log: log}
	return true
}

// remove unregisters a channel and returns its log.
func (r *ChannelRegistry) remove(name string) (Log, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	if !ok {
		return nil, false
	}
	delete(r.channels, name)
	return ch.log, true
}

// clear unregisters every channel and returns their logs.
func (r *ChannelRegistry) clear() []Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	logs := make([]Log, 0, len(r.channels))
	for _, ch := range r.channels {
		logs = append(logs, ch.log)
	}
	r.channels = make(map[string]*channel)
	return logs
}

// List returns the registered channels sorted by name.
func (r *ChannelRegistry) List() []ChannelInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]ChannelInfo, 0, len(r.channels))
	for _, ch := range r.channels {
		infos = append(infos, ChannelInfo{Name: ch.name, Password: ch.password})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
