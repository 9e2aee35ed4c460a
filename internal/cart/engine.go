// Package cart owns the single authoritative in-memory cart for a session
// and keeps it reconciled with the durable local snapshot store and the
// authoritative remote cart store.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pharmakart/cartsync/internal/session"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
	"github.com/pharmakart/cartsync/pkg/logger"
	"github.com/pharmakart/cartsync/pkg/metrics"
	"github.com/pharmakart/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

// LocalStore is the durable snapshot store the engine caches carts in.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
	Remove(ctx context.Context, key string) error
}

// RemoteStore is the authoritative cart backend. All writes use full-replace
// semantics so retries and out-of-order completions stay idempotent.
type RemoteStore interface {
	FetchCart(ctx context.Context, credential string) ([]types.LineItem, error)
	ReplaceCart(ctx context.Context, credential string, items []types.LineItem) error
	ClearCart(ctx context.Context, credential string) error
}

// Snapshot is a read-only view of the cart handed to watchers and callers.
// Totals are derived on construction, never cached.
type Snapshot struct {
	Items    []types.LineItem
	Subtotal decimal.Decimal
	Count    int
	Loading  bool
}

// Watcher observes cart state changes.
type Watcher func(Snapshot)

// Params carries the engine's collaborators.
type Params struct {
	Local   LocalStore
	Remote  RemoteStore
	Logger  *logger.Logger
	Metrics *metrics.SyncMetrics
}

// Engine is the cart reconciliation engine. Exactly one instance owns the
// cart for a session; all consumers read it through accessors or watchers
// and mutate it only through the operations below.
type Engine struct {
	mu          sync.Mutex
	items       []types.LineItem
	binding     session.Binding
	loading     bool
	seq         uint64
	persisted   uint64
	mergedScope string
	watchers    map[int]Watcher
	nextWatcher int

	local   LocalStore
	remote  RemoteStore
	logg    *logger.Logger
	metrics *metrics.SyncMetrics

	pending sync.WaitGroup
}

// NewEngine builds a reconciliation engine bound to the guest scope.
func NewEngine(params Params) (*Engine, error) {
	if params.Local == nil {
		return nil, fmt.Errorf("local store required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{
		binding:  session.GuestBinding(),
		watchers: map[int]Watcher{},
		local:    params.Local,
		remote:   params.Remote,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Binding returns the active session binding.
func (e *Engine) Binding() session.Binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.binding
}

// ScopeName returns the active ownership scope tag.
func (e *Engine) ScopeName() string {
	return e.Binding().Scope.String()
}

// Items returns a copy of the current line items.
func (e *Engine) Items() []types.LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.CloneLineItems(e.items)
}

// Subtotal recomputes the cart value from the current line items.
func (e *Engine) Subtotal() decimal.Decimal {
	return e.Snapshot().Subtotal
}

// Count recomputes the total item quantity.
func (e *Engine) Count() int {
	return e.Snapshot().Count
}

// Loading reports whether a load or merge is in flight.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Snapshot returns a consistent read-only view of the cart.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	subtotal := decimal.Zero
	count := 0
	for _, item := range e.items {
		subtotal = subtotal.Add(item.LineTotal())
		count += item.Quantity
	}
	return Snapshot{
		Items:    types.CloneLineItems(e.items),
		Subtotal: subtotal,
		Count:    count,
		Loading:  e.loading,
	}
}

// Watch registers a state observer and returns its cancel function.
func (e *Engine) Watch(fn Watcher) (cancel func()) {
	e.mu.Lock()
	id := e.nextWatcher
	e.nextWatcher++
	e.watchers[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.watchers, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	snapshot := e.snapshotLocked()
	observers := make([]Watcher, 0, len(e.watchers))
	for _, fn := range e.watchers {
		observers = append(observers, fn)
	}
	e.mu.Unlock()
	for _, fn := range observers {
		fn(snapshot)
	}
}

// Flush blocks until all scheduled persistence tasks have resolved.
func (e *Engine) Flush() {
	e.pending.Wait()
}

// Load hydrates the cart for the active scope. A user scope reads the remote
// store first and caches the result locally; when the remote store is
// unreachable it falls back to the cached snapshot. The guest scope reads
// only the local store. A read never triggers a persistence write beyond the
// fetch cache, so an empty initial load cannot clobber a not-yet-fetched
// remote cart.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	binding := e.binding
	e.loading = true
	e.mu.Unlock()
	e.notify()
	defer func() {
		e.mu.Lock()
		e.loading = false
		e.mu.Unlock()
		e.notify()
	}()

	ctx = e.logg.WithScope(ctx, binding.Scope.String())

	if binding.Scope.IsGuest() {
		items, err := e.readLocal(ctx, binding.Scope)
		if err != nil {
			return err
		}
		e.replaceInMemory(items)
		return nil
	}

	fetched, err := e.remote.FetchCart(ctx, binding.Credential)
	if err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "remote cart fetch failed, falling back to local snapshot")
		items, localErr := e.readLocal(ctx, binding.Scope)
		if localErr != nil {
			return localErr
		}
		e.replaceInMemory(items)
		return nil
	}

	items := normalizeLineItems(fetched)
	seq := e.replaceInMemory(items)
	e.writeLocalAt(ctx, binding.Scope, items, seq)
	return nil
}

// Refresh re-runs Load for the active scope.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.Load(ctx)
}

// AddItem applies a quantity delta for a product, inserting the line item if
// it is new. The stock ceiling is validated locally before any I/O; on
// success the in-memory cart changes immediately and one asynchronous
// persistence write is scheduled.
func (e *Engine) AddItem(ctx context.Context, item types.LineItem, delta int) error {
	if item.ProductID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if item.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if delta < 1 {
		delta = 1
	}

	e.mu.Lock()
	at := e.indexOfLocked(item.ProductID)

	current := 0
	hint := item.StockHint
	if at >= 0 {
		current = e.items[at].Quantity
		if hint == nil {
			hint = e.items[at].StockHint
		}
	}
	if hint != nil {
		if current >= *hint {
			e.mu.Unlock()
			return pkgerrors.New(pkgerrors.CodeStockLimit, fmt.Sprintf("%s is already at its stock limit", item.Name)).
				WithDetails(map[string]any{"productId": item.ProductID, "stock": *hint})
		}
		if current+delta > *hint {
			e.mu.Unlock()
			return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("only %d of %s available", *hint, item.Name)).
				WithDetails(map[string]any{"productId": item.ProductID, "stock": *hint})
		}
	}

	if at >= 0 {
		e.items[at].Quantity = current + delta
		if item.StockHint != nil {
			stock := *item.StockHint
			e.items[at].StockHint = &stock
		}
	} else {
		inserted := item
		inserted.Quantity = delta
		if item.StockHint != nil {
			stock := *item.StockHint
			inserted.StockHint = &stock
		}
		e.items = append(e.items, inserted)
	}
	e.seq++
	e.mu.Unlock()

	e.notify()
	e.schedulePersist(ctx)
	return nil
}

// RemoveItem optimistically deletes a line item and pushes the change as a
// full-cart replace. On remote failure the pre-operation snapshot is
// restored in memory and in the local cache.
func (e *Engine) RemoveItem(ctx context.Context, productID string) error {
	e.mu.Lock()
	at := e.indexOfLocked(productID)
	if at < 0 {
		e.mu.Unlock()
		return nil
	}
	prior := types.CloneLineItems(e.items)
	e.items = append(e.items[:at], e.items[at+1:]...)
	e.seq++
	seq := e.seq
	items := types.CloneLineItems(e.items)
	binding := e.binding
	e.mu.Unlock()
	e.notify()

	return e.commitMutation(ctx, binding, items, prior, seq, "remove_item")
}

// SetQuantity sets a line item's quantity directly. A quantity below one
// removes the line item instead; a value is never persisted at zero.
func (e *Engine) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return e.RemoveItem(ctx, productID)
	}

	e.mu.Lock()
	at := e.indexOfLocked(productID)
	if at < 0 {
		e.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	prior := types.CloneLineItems(e.items)
	e.items[at].Quantity = quantity
	e.seq++
	seq := e.seq
	items := types.CloneLineItems(e.items)
	binding := e.binding
	e.mu.Unlock()
	e.notify()

	return e.commitMutation(ctx, binding, items, prior, seq, "set_quantity")
}

// Clear optimistically empties the cart. A user scope issues a remote clear
// and restores the prior snapshot when it fails; on success the local cache
// entry is deleted as well.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	prior := types.CloneLineItems(e.items)
	e.items = nil
	e.seq++
	seq := e.seq
	binding := e.binding
	e.mu.Unlock()
	e.notify()

	ctx = e.logg.WithScope(ctx, binding.Scope.String())

	if !binding.Scope.IsGuest() {
		if err := e.remote.ClearCart(ctx, binding.Credential); err != nil {
			e.metrics.ObservePersist(binding.Scope.String(), false)
			e.rollback(ctx, prior, "clear")
			return err
		}
		e.metrics.ObservePersist(binding.Scope.String(), true)
	}

	e.removeLocalAt(ctx, binding.Scope, seq)
	return nil
}

// MergeOnSignIn reconciles the guest cart into the user's remote cart. It
// runs once per sign-in transition; a failed merge leaves the guest snapshot
// in place so the next attempt can retry.
func (e *Engine) MergeOnSignIn(ctx context.Context, binding session.Binding) error {
	if binding.Scope.IsGuest() {
		return pkgerrors.New(pkgerrors.CodeValidation, "merge requires a user scope")
	}

	e.mu.Lock()
	alreadyMerged := e.mergedScope == binding.Scope.StorageKey()
	e.binding = binding
	e.loading = true
	e.mu.Unlock()
	e.notify()
	defer func() {
		e.mu.Lock()
		e.loading = false
		e.mu.Unlock()
		e.notify()
	}()

	ctx = e.logg.WithScope(ctx, binding.Scope.String())
	ctx = e.logg.WithUserID(ctx, binding.Scope.UserID())

	if alreadyMerged {
		return nil
	}

	guestItems, err := e.readLocal(ctx, session.Guest())
	if err != nil {
		return err
	}

	remoteItems, err := e.remote.FetchCart(ctx, binding.Credential)
	if err != nil {
		e.metrics.ObserveMerge(false)
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "merge fetch failed, guest snapshot preserved")
		items, localErr := e.readLocal(ctx, binding.Scope)
		if localErr == nil {
			e.replaceInMemory(items)
		}
		return err
	}

	merged := mergeLineItems(remoteItems, guestItems)
	seq := e.replaceInMemory(merged)

	if len(guestItems) == 0 {
		// nothing to reconcile, the fetch result is cached like a load
		e.writeLocalAt(ctx, binding.Scope, merged, seq)
		e.markMerged(binding)
		return nil
	}

	if err := e.remote.ReplaceCart(ctx, binding.Credential, merged); err != nil {
		e.metrics.ObserveMerge(false)
		// keep the guest snapshot so the merge can retry later
		e.writeLocalAt(ctx, binding.Scope, merged, seq)
		return err
	}

	e.writeLocalAt(ctx, binding.Scope, merged, seq)
	if err := e.local.Remove(ctx, session.Guest().StorageKey()); err != nil {
		e.logg.Error(ctx, "failed to delete guest snapshot after merge", err)
	}
	e.metrics.ObserveMerge(true)
	e.markMerged(binding)
	e.logg.Info(e.logg.WithField(ctx, "items", len(merged)), "guest cart merged into user cart")
	return nil
}

// SignOut rebinds the engine to the guest scope. User-scoped local and
// remote state is left untouched, only no longer bound to the session.
func (e *Engine) SignOut(ctx context.Context) {
	e.mu.Lock()
	e.binding = session.GuestBinding()
	e.items = nil
	e.seq++
	e.mergedScope = ""
	e.mu.Unlock()
	e.notify()
	e.logg.Info(e.logg.WithScope(ctx, "guest"), "session unbound, cart detached")
}

// Drain unconditionally empties the in-memory cart and the active scope's
// local cache entry. It is the post-commit handoff for order placement; the
// remote cart is cleared separately, best effort, by the caller.
func (e *Engine) Drain(ctx context.Context) error {
	e.mu.Lock()
	e.items = nil
	e.seq++
	seq := e.seq
	binding := e.binding
	e.mu.Unlock()
	e.notify()

	e.removeLocalAt(ctx, binding.Scope, seq)
	return nil
}

// commitMutation pushes an already-applied optimistic mutation: user scopes
// replace the remote cart and roll back to the prior snapshot on failure,
// then the local cache is refreshed.
func (e *Engine) commitMutation(ctx context.Context, binding session.Binding, items, prior []types.LineItem, seq uint64, operation string) error {
	ctx = e.logg.WithScope(ctx, binding.Scope.String())

	if !binding.Scope.IsGuest() {
		if err := e.remote.ReplaceCart(ctx, binding.Credential, items); err != nil {
			e.metrics.ObservePersist(binding.Scope.String(), false)
			e.rollback(ctx, prior, operation)
			return err
		}
		e.metrics.ObservePersist(binding.Scope.String(), true)
	}

	e.writeLocalAt(ctx, binding.Scope, items, seq)
	return nil
}

// rollback restores the exact pre-operation snapshot, in memory and in the
// durable local cache.
func (e *Engine) rollback(ctx context.Context, prior []types.LineItem, operation string) {
	e.mu.Lock()
	e.items = types.CloneLineItems(prior)
	e.seq++
	seq := e.seq
	scope := e.binding.Scope
	e.mu.Unlock()

	e.metrics.IncRollback(operation)
	e.logg.Warn(e.logg.WithField(ctx, "operation", operation), "remote write failed, snapshot restored")
	e.writeLocalAt(ctx, scope, prior, seq)
	e.notify()
}

// schedulePersist enqueues one asynchronous persistence task for a completed
// mutation. The task persists the authoritative cart as of write time, so a
// slow older write can never replace the snapshot of a newer one.
func (e *Engine) schedulePersist(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		e.persist(ctx)
	}()
}

func (e *Engine) persist(ctx context.Context) {
	e.mu.Lock()
	seq := e.seq
	items := types.CloneLineItems(e.items)
	binding := e.binding
	e.mu.Unlock()

	ctx = e.logg.WithScope(ctx, binding.Scope.String())

	if !binding.Scope.IsGuest() {
		if err := e.remote.ReplaceCart(ctx, binding.Credential, items); err != nil {
			e.metrics.ObservePersist(binding.Scope.String(), false)
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "remote cart replace failed, snapshot cached locally")
		} else {
			e.metrics.ObservePersist(binding.Scope.String(), true)
		}
	}

	e.writeLocalAt(ctx, binding.Scope, items, seq)
}

// writeLocalAt persists a snapshot taken at the given sequence number. A
// write older than the last persisted sequence is discarded.
func (e *Engine) writeLocalAt(ctx context.Context, scope session.Scope, items []types.LineItem, seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq < e.persisted {
		return
	}
	payload, err := json.Marshal(items)
	if err != nil {
		e.logg.Error(ctx, "failed to encode cart snapshot", err)
		return
	}
	if err := e.local.Set(ctx, scope.StorageKey(), payload); err != nil {
		e.logg.Error(ctx, "failed to write cart snapshot", err)
		return
	}
	e.persisted = seq
}

func (e *Engine) removeLocalAt(ctx context.Context, scope session.Scope, seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq < e.persisted {
		return
	}
	if err := e.local.Remove(ctx, scope.StorageKey()); err != nil {
		e.logg.Error(ctx, "failed to remove cart snapshot", err)
		return
	}
	e.persisted = seq
}

func (e *Engine) readLocal(ctx context.Context, scope session.Scope) ([]types.LineItem, error) {
	payload, found, err := e.local.Get(ctx, scope.StorageKey())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart snapshot")
	}
	if !found {
		return nil, nil
	}
	var items []types.LineItem
	if err := json.Unmarshal(payload, &items); err != nil {
		e.logg.Error(ctx, "discarding unreadable cart snapshot", err)
		return nil, nil
	}
	return normalizeLineItems(items), nil
}

func (e *Engine) replaceInMemory(items []types.LineItem) uint64 {
	e.mu.Lock()
	e.items = types.CloneLineItems(items)
	e.seq++
	seq := e.seq
	e.mu.Unlock()
	e.notify()
	return seq
}

func (e *Engine) markMerged(binding session.Binding) {
	e.mu.Lock()
	e.mergedScope = binding.Scope.StorageKey()
	e.mu.Unlock()
}

func (e *Engine) indexOfLocked(productID string) int {
	for i, item := range e.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
