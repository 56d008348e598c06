package presence

import (
	"maps"
	"slices"
	"sync"

	"github.com/linchenxuan/eosemu/eos"
)

// Modification is an EOS_HPresenceModification: a staged copy of the local
// presence that SetPresence applies.
type Modification struct {
	mu       sync.Mutex
	status   Status
	richText string
	joinInfo string
	records  map[string]string
}

func newModification(from *Info) *Modification {
	m := &Modification{
		status:   from.Status,
		richText: from.RichText,
		joinInfo: from.JoinInfo,
		records:  make(map[string]string, len(from.Records)),
	}
	for _, r := range from.Records {
		m.records[r.Key] = r.Value
	}
	return m
}

func (m *Modification) SetStatus(s Status) eos.Result {
	if s < Offline || s > DoNotDisturb {
		return eos.InvalidParameters
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = s
	return eos.Success
}

func (m *Modification) SetRawRichText(text string) eos.Result {
	if len(text) > RichTextMaxLength {
		return eos.PresenceRichTextLengthInvalid
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.richText = text
	return eos.Success
}

// SetData adds or replaces records. Nothing changes if one of them is
// invalid.
func (m *Modification) SetData(records []DataRecord) eos.Result {
	for _, r := range records {
		if r.Key == "" || len(r.Key) > DataMaxKeyLength {
			return eos.PresenceDataKeyLengthInvalid
		}
		if len(r.Value) > DataMaxValueLength {
			return eos.PresenceDataValueLengthInvalid
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, r := range records {
		if _, ok := m.records[r.Key]; !ok {
			added++
		}
	}
	if len(m.records)+added > DataMaxKeys {
		return eos.LimitExceeded
	}
	for _, r := range records {
		m.records[r.Key] = r.Value
	}
	return eos.Success
}

// DeleteData drops the records with the given keys.
func (m *Modification) DeleteData(keys []string) eos.Result {
	for _, k := range keys {
		if len(k) > DataMaxKeyLength {
			return eos.PresenceDataKeyLengthInvalid
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.records, k)
	}
	return eos.Success
}

func (m *Modification) SetJoinInfo(joinInfo string) eos.Result {
	if len(joinInfo) > JoinInfoMaxLength {
		return eos.LimitExceeded
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.joinInfo = joinInfo
	return eos.Success
}

// apply writes the staged fields over info.
func (m *Modification) apply(info *Info) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info.Status = m.status
	info.RichText = m.richText
	info.JoinInfo = m.joinInfo
	info.Records = make([]DataRecord, 0, len(m.records))
	for _, k := range slices.Sorted(maps.Keys(m.records)) {
		info.Records = append(info.Records, DataRecord{Key: k, Value: m.records[k]})
	}
}
