package services

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/storage"
)

// Transfers tracks the file transfer requests of a storage service by the
// result that drives them. The caller holds the global lock.
type Transfers struct {
	byResult map[*callback.Result]*storage.Transfer
}

// NewTransfers returns an empty set.
func NewTransfers() *Transfers {
	return &Transfers{byResult: make(map[*callback.Result]*storage.Transfer)}
}

// Add binds t to res.
func (ts *Transfers) Add(res *callback.Result, t *storage.Transfer) {
	ts.byResult[res] = t
}

// Get returns the transfer res drives.
func (ts *Transfers) Get(res *callback.Result) (*storage.Transfer, bool) {
	t, ok := ts.byResult[res]
	return t, ok
}

// Len returns the number of tracked requests.
func (ts *Transfers) Len() int { return len(ts.byResult) }

// Step advances the transfer of res by one chunk and completes res once the
// transfer is finished. setResult stores the terminal code in the payload.
func (ts *Transfers) Step(res *callback.Result, setResult func(eos.Result)) bool {
	t, ok := ts.byResult[res]
	if !ok {
		setResult(eos.UnexpectedError)
		res.MarkDone()
		return true
	}
	code, done := t.Step()
	if !done {
		return false
	}
	setResult(code)
	res.MarkDone()
	return true
}

// Abort stops the transfer of res if it has not finished. The request stays
// tracked until the client releases it.
func (ts *Transfers) Abort(res *callback.Result) {
	if t, ok := ts.byResult[res]; ok {
		t.Abort()
	}
}

// Collect forgets requests that are both released and finished and returns
// how many went.
func (ts *Transfers) Collect() int {
	n := 0
	for res, t := range ts.byResult {
		if t.Released() && t.Finished() {
			delete(ts.byResult, res)
			n++
		}
	}
	return n
}

// AbortAll stops and forgets every request.
func (ts *Transfers) AbortAll() {
	for res, t := range ts.byResult {
		t.Abort()
		delete(ts.byResult, res)
	}
}
