package services

import (
	"time"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
)

// Queries tracks results waiting for another instance to answer a request
// about an account. The caller holds the global lock.
type Queries struct {
	waiting map[eos.EpicAccountID][]*callback.Result
}

// NewQueries returns an empty set.
func NewQueries() *Queries {
	return &Queries{waiting: make(map[eos.EpicAccountID][]*callback.Result)}
}

// Add makes res wait for an answer about user.
func (q *Queries) Add(user eos.EpicAccountID, res *callback.Result) {
	q.waiting[user] = append(q.waiting[user], res)
}

// Len returns the number of waiting results.
func (q *Queries) Len() int {
	n := 0
	for _, rs := range q.waiting {
		n += len(rs)
	}
	return n
}

// Answer completes every result waiting on user. set fills in the payload
// before the result is marked done. It returns how many were completed.
func (q *Queries) Answer(user eos.EpicAccountID, set func(*callback.Result)) int {
	rs := q.waiting[user]
	delete(q.waiting, user)
	for _, res := range rs {
		set(res)
		res.MarkDone()
	}
	return len(rs)
}

// Expire completes res through timeout once its deadline has passed and
// reports whether it did.
func (q *Queries) Expire(res *callback.Result, now time.Time, timeout func(*callback.Result)) bool {
	if !res.DeadlineExceeded(now) {
		return false
	}
	q.Forget(res)
	timeout(res)
	res.MarkDone()
	return true
}

// Forget stops tracking res.
func (q *Queries) Forget(res *callback.Result) {
	for user, rs := range q.waiting {
		for i, r := range rs {
			if r != res {
				continue
			}
			rs = append(rs[:i], rs[i+1:]...)
			if len(rs) == 0 {
				delete(q.waiting, user)
			} else {
				q.waiting[user] = rs
			}
			return
		}
	}
}
