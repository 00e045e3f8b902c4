package pgrecord

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// RegState is the registration state of one composite type.
//
// A type starts Unregistered when declared, moves to AwaitingType when a
// registration attempt finds the database type missing (the expected
// startup-before-migration race), and to Registered once a live connection
// confirms the shape and installs the codec. Failed is terminal: the
// declared shape contradicts the database and retrying cannot fix it.
type RegState int32

const (
	RegStateUnregistered RegState = iota
	RegStateBinding               // an attempt is in flight
	RegStateAwaitingType          // database type missing, listener stays armed
	RegStateRegistered
	RegStateFailed
)

func (s RegState) String() string {
	switch s {
	case RegStateUnregistered:
		return "unregistered"
	case RegStateBinding:
		return "binding"
	case RegStateAwaitingType:
		return "awaiting_type"
	case RegStateRegistered:
		return "registered"
	case RegStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// entry is the registry's per-type record. The state word is the atomic
// register-once guard: attempts CAS it to Binding instead of holding a
// registry-wide lock, so a slow introspection round-trip for one type never
// serialises unrelated types.
type entry struct {
	spec  *TypeSpec
	state atomic.Int32
	info  atomic.Pointer[typeInfo] // live shape, cached after the first success
	err   atomic.Pointer[Error]    // terminal error when state is Failed
}

func (e *entry) regState() RegState { return RegState(e.state.Load()) }

// Registry is the process-wide mapping from database type name to TypeSpec
// and decoder. Declared specs are added once at schema-definition time;
// connection events then drive the registration protocol that binds each
// spec to the live database type and installs its codec into connection
// type maps.
//
// A Registry is safe for concurrent use. Registration of a given type is
// idempotent; concurrent attempts for the same type collapse into one
// in-flight bind while distinct types proceed in parallel.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*entry
	log   zerolog.Logger
	group singleflight.Group

	obsMu     sync.Mutex
	onCreated []func(name string, conn Conn)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration progress and the
// warnings emitted when a type is not defined yet.
func WithLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty registry. Without WithLogger it stays
// silent.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		types: make(map[string]*entry),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a declared type to the registry. Nested composite types are
// registered along with it, since they must be bound before the outer type
// can be. Registering the same spec twice is a no-op; registering a
// different spec under an existing name is a schema error.
func (r *Registry) Register(spec *TypeSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(spec)
}

func (r *Registry) registerLocked(spec *TypeSpec) error {
	if existing, ok := r.types[spec.name]; ok {
		if existing.spec != spec {
			return schemaErrorf("type %s is already registered with a different shape", spec.name)
		}
		return nil
	}
	for _, f := range spec.fields {
		if f.Kind == KindComposite {
			if err := r.registerLocked(f.Elem); err != nil {
				return err
			}
		}
	}
	r.types[spec.name] = &entry{spec: spec}
	return nil
}

// Lookup returns the spec registered under a database type name.
func (r *Registry) Lookup(name string) (*TypeSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.types[name]
	if !ok {
		return nil, false
	}
	return e.spec, true
}

// State reports the registration state of a type.
func (r *Registry) State(name string) (RegState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.types[name]
	if !ok {
		return RegStateUnregistered, false
	}
	return e.regState(), true
}

// OnTypeCreated subscribes to the one-shot notification fired when a
// creation operation brings a type into existence on a connection.
func (r *Registry) OnTypeCreated(fn func(name string, conn Conn)) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.onCreated = append(r.onCreated, fn)
}

func (r *Registry) notifyTypeCreated(name string, conn Conn) {
	r.obsMu.Lock()
	observers := make([]func(name string, conn Conn), len(r.onCreated))
	copy(observers, r.onCreated)
	r.obsMu.Unlock()
	for _, fn := range observers {
		fn(name, conn)
	}
}

// ConnectionEstablished runs the registration protocol for every known type
// on a new connection. Types whose database definition is still missing are
// logged and skipped, leaving the listener armed for the next event, while
// shape mismatches propagate immediately.
//
// Wire this into the pool's per-connection hook (Connect does so).
func (r *Registry) ConnectionEstablished(ctx context.Context, conn Conn) error {
	return r.bindAll(ctx, conn, "connection_established")
}

// SchemaApplied re-runs the registration protocol after schema changes on
// an existing connection. This is what lets a creation migration executed
// in the same session as an earlier failed attempt still end in a
// registered type, without waiting for a fresh connection.
func (r *Registry) SchemaApplied(ctx context.Context, conn Conn) error {
	return r.bindAll(ctx, conn, "schema_applied")
}

func (r *Registry) bindAll(ctx context.Context, conn Conn, event string) error {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.types))
	for _, e := range r.types {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	for _, e := range entries {
		if err := r.bind(ctx, conn, e); err != nil {
			return err
		}
		r.log.Debug().
			Str("type", e.spec.name).
			Str("event", event).
			Stringer("state", e.regState()).
			Msg("registration attempt finished")
	}
	return nil
}

// Bind runs one registration attempt for a single type on the given
// connection. A missing database type is not an error (the attempt is
// logged and re-armed); a shape mismatch is, permanently.
func (r *Registry) Bind(ctx context.Context, conn Conn, name string) error {
	r.mu.RLock()
	e, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return schemaErrorf("type %s is not registered", name)
	}
	return r.bind(ctx, conn, e)
}

func (r *Registry) bind(ctx context.Context, conn Conn, e *entry) error {
	// Already bound process-wide: install the cached codec into this
	// connection's type map without another catalog round-trip.
	if e.regState() == RegStateRegistered {
		return r.installCached(conn, e)
	}
	if e.regState() == RegStateFailed {
		return e.err.Load()
	}
	_, err, _ := r.group.Do(e.spec.name, func() (any, error) {
		return nil, r.attempt(ctx, conn, e)
	})
	if err != nil {
		return err
	}
	// The flight may have run on another goroutine's connection; make sure
	// this connection's type map has the codec too.
	if e.regState() == RegStateRegistered {
		return r.installCached(conn, e)
	}
	return nil
}

// attempt is the body of the state machine. Exactly one goroutine per type
// runs it at a time (singleflight); the CAS guards against attempts racing
// the state transitions themselves.
func (r *Registry) attempt(ctx context.Context, conn Conn, e *entry) error {
	for {
		switch s := e.regState(); s {
		case RegStateRegistered:
			return r.installCached(conn, e)
		case RegStateFailed:
			return e.err.Load()
		case RegStateBinding:
			// A prior attempt on this flight already holds the guard.
			return nil
		default:
			if e.state.CompareAndSwap(int32(s), int32(RegStateBinding)) {
				return r.attemptLocked(ctx, conn, e)
			}
		}
	}
}

func (r *Registry) attemptLocked(ctx context.Context, conn Conn, e *entry) error {
	// Nested composite types bind first: the outer codec resolves their
	// OIDs through the type map.
	for _, f := range e.spec.fields {
		if f.Kind != KindComposite {
			continue
		}
		r.mu.RLock()
		ne, ok := r.types[f.Elem.name]
		r.mu.RUnlock()
		if !ok {
			e.state.Store(int32(RegStateAwaitingType))
			return schemaErrorf("%s depends on unregistered type %s", e.spec.name, f.Elem.name)
		}
		if err := r.bind(ctx, conn, ne); err != nil {
			if ne.regState() == RegStateFailed {
				// The nested shape contradicts the database; no later
				// event can make the outer type registrable either.
				return r.fail(e, err)
			}
			e.state.Store(int32(RegStateAwaitingType))
			return err
		}
		if ne.regState() != RegStateRegistered {
			// The nested type is itself still waiting for its migration.
			e.state.Store(int32(RegStateAwaitingType))
			r.log.Warn().
				Str("type", e.spec.name).
				Str("nested", f.Elem.name).
				Msg("nested type not available yet, registration deferred")
			return nil
		}
	}

	info, err := lookupType(ctx, conn, e.spec.name)
	if err != nil {
		if IsUndefinedType(err) {
			// Expected race: startup before migration. Stay armed and let
			// the next connection or schema-applied event retry.
			e.state.Store(int32(RegStateAwaitingType))
			r.log.Warn().
				Str("type", e.spec.name).
				Err(err).
				Msg("composite type not defined yet, will retry on the next registration event")
			return nil
		}
		return r.fail(e, err)
	}

	if err := e.spec.registerInto(conn.TypeMap(), info); err != nil {
		return r.fail(e, err)
	}

	e.info.Store(info)
	e.state.Store(int32(RegStateRegistered))
	r.log.Info().
		Str("type", e.spec.name).
		Uint32("oid", info.OID).
		Msg("composite type registered")
	return nil
}

// fail marks an entry terminally broken. The mismatch is a configuration
// bug; retrying would keep corrupting reads, so every later attempt returns
// the same error.
func (r *Registry) fail(e *entry, err error) error {
	var perr *Error
	if !errors.As(err, &perr) {
		perr = &Error{Kind: ErrKindDecode, Message: "registration failed", Cause: err}
	}
	e.err.Store(perr)
	e.state.Store(int32(RegStateFailed))
	return perr
}

// installCached re-installs an already-verified codec into another
// connection's type map, depth-first so nested OIDs resolve.
func (r *Registry) installCached(conn Conn, e *entry) error {
	for _, f := range e.spec.fields {
		if f.Kind != KindComposite {
			continue
		}
		r.mu.RLock()
		ne, ok := r.types[f.Elem.name]
		r.mu.RUnlock()
		if !ok || ne.regState() != RegStateRegistered {
			return decodeErrorf("%s is registered but its nested type %s is not", e.spec.name, f.Elem.name)
		}
		if err := r.installCached(conn, ne); err != nil {
			return err
		}
	}
	return e.spec.registerInto(conn.TypeMap(), e.info.Load())
}
