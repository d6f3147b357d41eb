// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/datarespons/nvram/lib/attr"
)

// DefaultSystemPrefix is the key prefix that routes to the SYSTEM
// section under the default policy.
const DefaultSystemPrefix = "SYS_"

// Options configures a Manager. The zero value gives the default
// prefix policy with no unlock, no whitelist, and init disabled.
type Options struct {
	// SystemPrefix routes keys to the SYSTEM section. Defaults to
	// DefaultSystemPrefix when empty.
	SystemPrefix string

	// AllowAllPrefixes relaxes the outbound prefix check so a
	// system-mode write may carry any prefix. The system prefix is
	// never writable from user mode, override or not.
	AllowAllPrefixes bool

	// Unlocked grants SYSTEM mutation privilege for this invocation.
	Unlocked bool

	// InitEnabled gates init ingestion.
	InitEnabled bool

	// ValidAttributes, when non-nil, is a whitelist: every key written
	// must appear in it.
	ValidAttributes map[string]struct{}

	// Logger receives debug-level routing and commit decisions. Nil
	// falls back to slog.Default().
	Logger *slog.Logger
}

// Manager owns the USER and SYSTEM sections, routes each keyed
// operation, enforces privilege, and batches a request's mutations
// into at most one commit per section.
type Manager struct {
	user    Section
	system  Section
	options Options
	logger  *slog.Logger
}

// NewManager builds a manager over the two sections.
func NewManager(user, system Section, options Options) *Manager {
	if options.SystemPrefix == "" {
		options.SystemPrefix = DefaultSystemPrefix
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{user: user, system: system, options: options, logger: logger}
}

// Execute validates and applies one request. Validation completes
// before any section image is touched, so a failing request has no
// observable effect; on success each affected section is committed
// exactly once.
func (m *Manager) Execute(request Request) (*Result, error) {
	if err := m.validate(request); err != nil {
		return nil, err
	}
	if m.isRead(request) {
		return m.executeReads(request)
	}
	return m.executeWrites(request)
}

// isRead reports whether the request is a read workload. validate has
// already rejected mixed workloads.
func (m *Manager) isRead(request Request) bool {
	for _, op := range request.Ops {
		if op.Kind == OpSet || op.Kind == OpDelete {
			return false
		}
	}
	return true
}

// validate runs every check the request can fail before any image
// mutation: workload shape, key syntax, prefix policy, privilege,
// whitelist, and section availability.
func (m *Manager) validate(request Request) error {
	reads, writes := 0, 0
	for _, op := range request.Ops {
		switch op.Kind {
		case OpGet, OpList:
			reads++
		case OpSet, OpDelete:
			writes++
		}
	}
	if reads > 0 && writes > 0 {
		return fmt.Errorf("cannot mix read and write operations in one invocation")
	}
	if request.Init {
		if !m.options.InitEnabled {
			return fmt.Errorf("init ingestion disabled: %w", ErrPrivilegeDenied)
		}
		if !m.options.Unlocked {
			return fmt.Errorf("init requires system unlock: %w", ErrPrivilegeDenied)
		}
	}

	for _, op := range request.Ops {
		switch op.Kind {
		case OpGet:
			if err := attr.ValidateKey(op.Key); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			if err := m.checkAvailable(m.readSection(request, op.Key)); err != nil {
				return err
			}
		case OpList:
			if err := m.checkAvailable(m.modeSection(request)); err != nil {
				return err
			}
		case OpSet:
			if err := attr.ValidateKey(op.Key); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			if err := attr.ValidateValue(op.Value); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			if err := m.checkWrite(request, op.Key); err != nil {
				return err
			}
			if err := m.checkWhitelist(op.Key); err != nil {
				return err
			}
		case OpDelete:
			if err := attr.ValidateKey(op.Key); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			if err := m.checkWrite(request, op.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkWrite enforces prefix policy and privilege for one mutation.
// The rules, with P the system prefix:
//
//   - user mode: the key must not carry P, ever. Everything else
//     routes to USER.
//   - system mode: the key must carry P unless AllowAllPrefixes, and
//     the invocation must hold the system unlock.
//
// Privilege is checked even for deletes of absent keys: a locked
// SYSTEM delete fails before anyone looks at the image.
func (m *Manager) checkWrite(request Request, key string) error {
	prefix := m.options.SystemPrefix
	if request.SystemMode {
		if !m.options.Unlocked {
			return fmt.Errorf("system section is write locked: %w", ErrPrivilegeDenied)
		}
		if !m.options.AllowAllPrefixes && !strings.HasPrefix(key, prefix) {
			return fmt.Errorf("%w: system attribute %q missing required prefix %q", ErrPrefixViolation, key, prefix)
		}
	} else {
		if strings.HasPrefix(key, prefix) {
			return fmt.Errorf("%w: forbidden prefix %q in user attribute %q", ErrPrefixViolation, prefix, key)
		}
	}
	return m.checkAvailable(m.modeSection(request))
}

// checkWhitelist enforces the optional valid-attribute list on writes.
func (m *Manager) checkWhitelist(key string) error {
	if m.options.ValidAttributes == nil {
		return nil
	}
	if _, ok := m.options.ValidAttributes[key]; !ok {
		return fmt.Errorf("%w: %q", ErrNotWhitelisted, key)
	}
	return nil
}

// checkAvailable rejects operations on disabled sections. Corrupt
// sections pass here: executeReads fails reads of them, and mutations
// start from the empty image and repair the copies on commit.
func (m *Manager) checkAvailable(section Section) error {
	if !section.Enabled() {
		return fmt.Errorf("%s: %w", section.Name(), ErrDisabledSection)
	}
	return nil
}

// modeSection returns the section addressed by un-prefixed commands:
// SYSTEM in system mode, USER otherwise.
func (m *Manager) modeSection(request Request) Section {
	if request.SystemMode {
		return m.system
	}
	return m.user
}

// readSection routes a get. Reads carry no privilege, so a get follows
// the key: system mode always reads SYSTEM, and in user mode a
// system-prefixed key still resolves to the SYSTEM section.
func (m *Manager) readSection(request Request, key string) Section {
	if request.SystemMode || strings.HasPrefix(key, m.options.SystemPrefix) {
		return m.system
	}
	return m.user
}

func (m *Manager) executeReads(request Request) (*Result, error) {
	result := &Result{}
	snapshots := make(map[Section]*attr.List)
	snapshot := func(section Section) (*attr.List, error) {
		if section.Corrupt() {
			return nil, fmt.Errorf("%s: no valid copy and undecodable data present: %w", section.Name(), ErrCorrupt)
		}
		if image, ok := snapshots[section]; ok {
			return image, nil
		}
		image := section.Snapshot()
		snapshots[section] = image
		return image, nil
	}

	for _, op := range request.Ops {
		switch op.Kind {
		case OpGet:
			section := m.readSection(request, op.Key)
			image, err := snapshot(section)
			if err != nil {
				return nil, err
			}
			value, ok := image.Get(op.Key)
			if !ok {
				return nil, fmt.Errorf("%s: %q: %w", section.Name(), op.Key, ErrNotFound)
			}
			result.Values = append(result.Values, value)
		case OpList:
			section := m.modeSection(request)
			image, err := snapshot(section)
			if err != nil {
				return nil, err
			}
			result.Listing = image.Entries()
			m.logger.Debug("listing section", "section", section.Name(), "entries", image.Len())
		}
	}
	return result, nil
}

func (m *Manager) executeWrites(request Request) (*Result, error) {
	section := m.modeSection(request)
	image := section.Snapshot()

	changed := false
	for _, op := range request.Ops {
		switch op.Kind {
		case OpSet:
			if image.Set(op.Key, op.Value) {
				changed = true
			}
			m.logger.Debug("set attribute", "section", section.Name(), "key", op.Key)
		case OpDelete:
			if image.Remove(op.Key) {
				changed = true
			}
			m.logger.Debug("delete attribute", "section", section.Name(), "key", op.Key)
		}
	}

	// A batch that produced no logical change skips the commit; the
	// live state already equals the committed image.
	if changed {
		if err := section.Commit(image); err != nil {
			return nil, err
		}
		m.logger.Debug("committed section", "section", section.Name())
	}
	return &Result{}, nil
}
