package syntax

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-enry/go-enry/v2"

	"github.com/zjrosen/novic/internal/log"
)

// Registry indexes compiled languages by name and by file extension.
// Lookups are case-insensitive. A Registry is built once at startup and
// handed to every view and controller that needs lookups; Replace swaps the
// whole set atomically when definitions are reloaded.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Language
	byExt  map[string]*Language
}

// NewRegistry creates a registry holding langs.
func NewRegistry(langs ...*Language) *Registry {
	r := &Registry{
		byName: make(map[string]*Language),
		byExt:  make(map[string]*Language),
	}
	for _, l := range langs {
		r.register(l)
	}
	return r
}

// Register adds lang, replacing any language with the same name.
func (r *Registry) Register(lang *Language) {
	if lang == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(lang)
}

func (r *Registry) register(lang *Language) {
	key := strings.ToLower(lang.Name)
	if prev, ok := r.byName[key]; ok {
		for ext, l := range r.byExt {
			if l == prev {
				delete(r.byExt, ext)
			}
		}
	}
	r.byName[key] = lang
	for _, ext := range lang.Extensions {
		r.byExt[strings.ToLower(ext)] = lang
	}
}

// Replace discards every registered language and installs langs.
func (r *Registry) Replace(langs []*Language) {
	byName := make(map[string]*Language, len(langs))
	byExt := make(map[string]*Language)
	fresh := &Registry{byName: byName, byExt: byExt}
	for _, l := range langs {
		if l != nil {
			fresh.register(l)
		}
	}

	r.mu.Lock()
	r.byName, r.byExt = fresh.byName, fresh.byExt
	r.mu.Unlock()
}

// Get returns the language named name, or nil.
func (r *Registry) Get(name string) *Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[strings.ToLower(strings.TrimSpace(name))]
}

// ForExtension returns the language registered for ext ("py" or ".py"), or nil.
func (r *Registry) ForExtension(ext string) *Language {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byExt[ext]
}

// Detect picks a language for a file. The extension wins; otherwise
// go-enry guesses from the file name and content and the guess is looked up
// by name. Returns nil when nothing matches.
func (r *Registry) Detect(filename string, content []byte) *Language {
	if l := r.ForExtension(filepath.Ext(filename)); l != nil {
		return l
	}
	guess := enry.GetLanguage(filepath.Base(filename), content)
	if guess == "" {
		return nil
	}
	l := r.Get(guess)
	if l != nil {
		log.Debug(log.CatRegistry, "language detected by content", "file", filename, "language", l.Name)
	}
	return l
}

// Languages returns all registered languages sorted by name.
func (r *Registry) Languages() []*Language {
	r.mu.RLock()
	out := make([]*Language, 0, len(r.byName))
	for _, l := range r.byName {
		out = append(out, l)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Len returns the number of registered languages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
