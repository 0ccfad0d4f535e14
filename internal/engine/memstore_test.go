package engine

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

// memStore is an in-memory Store for exercising the posting engine without
// a database. Transactions are not simulated; tests assert on end states.
type memStore struct {
	cows         map[string]*herd.Cow
	dispositions map[string]*herd.Disposition
	entries      map[string]*ledger.JournalEntry
	settings     map[string]*settings.DepreciationSettings
	overrides    map[string]map[ledger.AccountRole]ledger.Account
	logs         map[string]*ledger.ProcessingLog
}

func newMemStore() *memStore {
	return &memStore{
		cows:         make(map[string]*herd.Cow),
		dispositions: make(map[string]*herd.Disposition),
		entries:      make(map[string]*ledger.JournalEntry),
		settings:     make(map[string]*settings.DepreciationSettings),
		overrides:    make(map[string]map[ledger.AccountRole]ledger.Account),
		logs:         make(map[string]*ledger.ProcessingLog),
	}
}

func (s *memStore) Repos() Repos {
	return Repos{
		Cows:     &memHerd{s: s},
		Journal:  &memJournal{s: s},
		Settings: &memSettings{s: s},
	}
}

func (s *memStore) InTenantTx(ctx context.Context, tenantID string, fn func(ctx context.Context, r Repos) error) error {
	return fn(ctx, s.Repos())
}

func (s *memStore) dispositionFor(cowID string) *herd.Disposition {
	for _, d := range s.dispositions {
		if d.CowID == cowID {
			return d
		}
	}
	return nil
}

// entriesByDate returns the store's entries ordered by date then ID for
// deterministic iteration.
func (s *memStore) entriesByDate() []*ledger.JournalEntry {
	all := make([]*ledger.JournalEntry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].EntryDate.Equal(all[j].EntryDate) {
			return all[i].EntryDate.Before(all[j].EntryDate)
		}
		return all[i].ID < all[j].ID
	})
	return all
}

type memHerd struct{ s *memStore }

func (r *memHerd) UpsertCow(_ context.Context, c *herd.Cow) error {
	for _, existing := range r.s.cows {
		if existing.TenantID == c.TenantID && existing.TagNumber == c.TagNumber {
			existing.FreshenDate = c.FreshenDate
			existing.PurchasePrice = c.PurchasePrice
			existing.SalvageValue = c.SalvageValue
			existing.AcquisitionType = c.AcquisitionType
			existing.UpdatedAt = c.UpdatedAt
			return nil
		}
	}
	clone := *c
	r.s.cows[c.ID] = &clone
	return nil
}

func (r *memHerd) cowView(c *herd.Cow) *herd.Cow {
	clone := *c
	if d := r.s.dispositionFor(c.ID); d != nil {
		date := d.DispositionDate
		clone.DispositionDate = &date
	} else {
		clone.DispositionDate = nil
	}
	return &clone
}

func (r *memHerd) GetCow(_ context.Context, cowID string) (*herd.Cow, error) {
	c, ok := r.s.cows[cowID]
	if !ok {
		return nil, herd.ErrCowNotFound
	}
	return r.cowView(c), nil
}

func (r *memHerd) GetCowByTag(_ context.Context, tenantID, tagNumber string) (*herd.Cow, error) {
	for _, c := range r.s.cows {
		if c.TenantID == tenantID && c.TagNumber == tagNumber {
			return r.cowView(c), nil
		}
	}
	return nil, herd.ErrCowNotFound
}

func (r *memHerd) ListCows(_ context.Context, tenantID string, status herd.CowStatus) ([]herd.Cow, error) {
	var out []herd.Cow
	for _, c := range r.s.cows {
		if c.TenantID != tenantID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, *r.cowView(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TagNumber < out[j].TagNumber })
	return out, nil
}

func (r *memHerd) ListDepreciableCows(_ context.Context, tenantID string, asOf time.Time) ([]herd.Cow, error) {
	var out []herd.Cow
	for _, c := range r.s.cows {
		if c.TenantID == tenantID && !c.FreshenDate.After(asOf) {
			out = append(out, *r.cowView(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TagNumber < out[j].TagNumber })
	return out, nil
}

func (r *memHerd) UpdateCowStatus(_ context.Context, cowID string, status herd.CowStatus, currentValue decimal.Decimal, dispositionID *string) error {
	c, ok := r.s.cows[cowID]
	if !ok {
		return herd.ErrCowNotFound
	}
	c.Status = status
	c.CurrentValue = currentValue
	c.DispositionID = dispositionID
	return nil
}

func (r *memHerd) EarliestFreshenDate(_ context.Context, tenantID string) (*time.Time, error) {
	var earliest *time.Time
	for _, c := range r.s.cows {
		if c.TenantID != tenantID {
			continue
		}
		if earliest == nil || c.FreshenDate.Before(*earliest) {
			d := c.FreshenDate
			earliest = &d
		}
	}
	return earliest, nil
}

func (r *memHerd) CowIDsMissingAcquisition(_ context.Context, tenantID string) ([]string, error) {
	var ids []string
	for _, c := range r.s.cows {
		if c.TenantID != tenantID || !c.PurchasePrice.GreaterThan(decimal.Zero) {
			continue
		}
		found := false
		for _, e := range r.s.entries {
			if e.EntryType != ledger.EntryAcquisition {
				continue
			}
			for _, l := range e.Lines {
				if l.CowID != nil && *l.CowID == c.ID {
					found = true
				}
			}
		}
		if !found {
			ids = append(ids, c.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memHerd) DistinctTenantIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range r.s.cows {
		if !seen[c.TenantID] {
			seen[c.TenantID] = true
			ids = append(ids, c.TenantID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memHerd) CreateDisposition(_ context.Context, d *herd.Disposition) error {
	clone := *d
	r.s.dispositions[d.ID] = &clone
	return nil
}

func (r *memHerd) GetDisposition(_ context.Context, id string) (*herd.Disposition, error) {
	d, ok := r.s.dispositions[id]
	if !ok {
		return nil, herd.ErrDispositionNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *memHerd) DispositionForCow(_ context.Context, cowID string) (*herd.Disposition, error) {
	if d := r.s.dispositionFor(cowID); d != nil {
		clone := *d
		return &clone, nil
	}
	return nil, herd.ErrDispositionNotFound
}

func (r *memHerd) SetDispositionResult(_ context.Context, id, journalEntryID string, bookValue, gainLoss decimal.Decimal) error {
	d, ok := r.s.dispositions[id]
	if !ok {
		return herd.ErrDispositionNotFound
	}
	if journalEntryID == "" {
		d.JournalEntryID = nil
	} else {
		d.JournalEntryID = &journalEntryID
	}
	d.FinalBookValue = &bookValue
	d.GainLoss = &gainLoss
	return nil
}

func (r *memHerd) DeleteDisposition(_ context.Context, id string) error {
	if _, ok := r.s.dispositions[id]; !ok {
		return herd.ErrDispositionNotFound
	}
	delete(r.s.dispositions, id)
	return nil
}

func (r *memHerd) DispositionsMissingEntry(_ context.Context, tenantID string) ([]herd.Disposition, error) {
	var out []herd.Disposition
	for _, d := range r.s.dispositions {
		if d.TenantID == tenantID && d.JournalEntryID == nil {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DispositionDate.Before(out[j].DispositionDate) })
	return out, nil
}

type memJournal struct{ s *memStore }

func (r *memJournal) CreateEntry(_ context.Context, e *ledger.JournalEntry) error {
	clone := *e
	clone.Lines = append([]ledger.JournalLine(nil), e.Lines...)
	r.s.entries[e.ID] = &clone
	return nil
}

func (r *memJournal) GetEntry(_ context.Context, entryID string) (*ledger.JournalEntry, error) {
	e, ok := r.s.entries[entryID]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	clone := *e
	clone.Lines = append([]ledger.JournalLine(nil), e.Lines...)
	return &clone, nil
}

func (r *memJournal) DeleteEntry(_ context.Context, entryID string) error {
	if _, ok := r.s.entries[entryID]; !ok {
		return ledger.ErrEntryNotFound
	}
	delete(r.s.entries, entryID)
	return nil
}

func (r *memJournal) FindDepreciationEntry(_ context.Context, tenantID string, source ledger.Period, entryDate time.Time) (*ledger.JournalEntry, error) {
	for _, e := range r.s.entries {
		if e.TenantID == tenantID && e.EntryType == ledger.EntryDepreciation &&
			e.SourceYear == source.Year && e.SourceMonth == source.Month &&
			e.EntryDate.Equal(entryDate) {
			clone := *e
			clone.Lines = append([]ledger.JournalLine(nil), e.Lines...)
			return &clone, nil
		}
	}
	return nil, ledger.ErrEntryNotFound
}

func (r *memJournal) LatestDepreciationEntryForSource(_ context.Context, tenantID string, source ledger.Period) (*ledger.JournalEntry, error) {
	var latest *ledger.JournalEntry
	for _, e := range r.s.entries {
		if e.TenantID != tenantID || e.EntryType != ledger.EntryDepreciation ||
			e.SourceYear != source.Year || e.SourceMonth != source.Month {
			continue
		}
		if latest == nil || e.EntryDate.After(latest.EntryDate) {
			latest = e
		}
	}
	if latest == nil {
		return nil, ledger.ErrEntryNotFound
	}
	clone := *latest
	return &clone, nil
}

func (r *memJournal) DeleteDepreciationEntries(_ context.Context, tenantID string, source ledger.Period, notBefore time.Time) (int, error) {
	count := 0
	for id, e := range r.s.entries {
		if e.TenantID == tenantID && e.EntryType == ledger.EntryDepreciation &&
			e.SourceYear == source.Year && e.SourceMonth == source.Month &&
			!e.EntryDate.Before(notBefore) {
			delete(r.s.entries, id)
			count++
		}
	}
	return count, nil
}

func (r *memJournal) AcquisitionEntryID(_ context.Context, cowID string) (string, error) {
	for _, e := range r.s.entries {
		if e.EntryType != ledger.EntryAcquisition {
			continue
		}
		for _, l := range e.Lines {
			if l.CowID != nil && *l.CowID == cowID {
				return e.ID, nil
			}
		}
	}
	return "", ledger.ErrEntryNotFound
}

func (r *memJournal) AddLines(_ context.Context, lines []ledger.JournalLine) error {
	for _, l := range lines {
		e, ok := r.s.entries[l.EntryID]
		if !ok {
			return ledger.ErrEntryNotFound
		}
		e.Lines = append(e.Lines, l)
	}
	return nil
}

func (r *memJournal) DeleteCowLines(_ context.Context, entryID, cowID string) (int, error) {
	e, ok := r.s.entries[entryID]
	if !ok {
		return 0, nil
	}
	kept := e.Lines[:0]
	count := 0
	for _, l := range e.Lines {
		if l.CowID != nil && *l.CowID == cowID {
			count++
			continue
		}
		kept = append(kept, l)
	}
	e.Lines = kept
	return count, nil
}

func (r *memJournal) HasCowLines(_ context.Context, entryID, cowID string) (bool, error) {
	e, ok := r.s.entries[entryID]
	if !ok {
		return false, nil
	}
	for _, l := range e.Lines {
		if l.CowID != nil && *l.CowID == cowID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memJournal) SetEntryTotal(_ context.Context, entryID string, total decimal.Decimal) error {
	e, ok := r.s.entries[entryID]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	e.TotalAmount = total
	return nil
}

func (r *memJournal) AccumulatedDepreciation(_ context.Context, cowID, accumCode string, through time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.s.entries {
		if e.EntryType != ledger.EntryDepreciation && e.EntryType != ledger.EntryDepreciation.Reversal() {
			continue
		}
		if e.EntryDate.After(through) {
			continue
		}
		for _, l := range e.Lines {
			if l.CowID != nil && *l.CowID == cowID && l.AccountCode == accumCode {
				total = total.Add(l.Credit).Sub(l.Debit)
			}
		}
	}
	return total, nil
}

func (r *memJournal) LastDepreciationDate(_ context.Context, cowID, accumCode string) (*time.Time, error) {
	var last *time.Time
	for _, e := range r.s.entries {
		if e.EntryType != ledger.EntryDepreciation {
			continue
		}
		for _, l := range e.Lines {
			if l.CowID != nil && *l.CowID == cowID && l.AccountCode == accumCode && l.Credit.GreaterThan(decimal.Zero) {
				if last == nil || e.EntryDate.After(*last) {
					d := e.EntryDate
					last = &d
				}
			}
		}
	}
	return last, nil
}

func (r *memJournal) SweepDepreciationAfter(_ context.Context, cowID string, after time.Time) (ledger.SweepResult, error) {
	var res ledger.SweepResult
	for id, e := range r.s.entries {
		if e.EntryType != ledger.EntryDepreciation || !e.EntryDate.After(after) {
			continue
		}
		kept := e.Lines[:0]
		removed := 0
		for _, l := range e.Lines {
			if l.CowID != nil && *l.CowID == cowID {
				removed++
				continue
			}
			kept = append(kept, l)
		}
		if removed == 0 {
			continue
		}
		res.LinesDeleted += removed
		e.Lines = kept
		if len(e.Lines) == 0 {
			delete(r.s.entries, id)
			res.EntriesDeleted++
			continue
		}
		total := decimal.Zero
		for _, l := range e.Lines {
			total = total.Add(l.Debit)
		}
		e.TotalAmount = total
		res.EntriesAdjusted++
	}
	return res, nil
}

func (r *memJournal) DepreciationSourcePeriods(_ context.Context, tenantID string) (map[ledger.Period]bool, error) {
	periods := make(map[ledger.Period]bool)
	for _, e := range r.s.entries {
		if e.TenantID == tenantID && e.EntryType == ledger.EntryDepreciation {
			periods[ledger.Period{Year: e.SourceYear, Month: e.SourceMonth}] = true
		}
	}
	return periods, nil
}

func logKey(tenantID string, year int, month time.Month, entryType ledger.EntryType) string {
	return tenantID + "/" + time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01") + "/" + string(entryType)
}

func (r *memJournal) StartProcessingLog(_ context.Context, tenantID string, p ledger.Period, entryType ledger.EntryType) error {
	r.s.logs[logKey(tenantID, p.Year, p.Month, entryType)] = &ledger.ProcessingLog{
		TenantID: tenantID, Year: p.Year, Month: p.Month, EntryType: entryType,
		Status: ledger.ProcessingProcessing, TotalAmount: decimal.Zero, StartedAt: time.Now(),
	}
	return nil
}

func (r *memJournal) FinishProcessingLog(_ context.Context, log *ledger.ProcessingLog) error {
	clone := *log
	now := time.Now()
	clone.CompletedAt = &now
	r.s.logs[logKey(log.TenantID, log.Year, log.Month, log.EntryType)] = &clone
	return nil
}

func (r *memJournal) ListProcessingLogs(_ context.Context, tenantID string) ([]ledger.ProcessingLog, error) {
	var out []ledger.ProcessingLog
	for _, l := range r.s.logs {
		if l.TenantID == tenantID {
			out = append(out, *l)
		}
	}
	return out, nil
}

type memSettings struct{ s *memStore }

func (r *memSettings) Get(_ context.Context, tenantID string) (*settings.DepreciationSettings, error) {
	s, ok := r.s.settings[tenantID]
	if !ok {
		return nil, settings.ErrSettingsNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *memSettings) Upsert(_ context.Context, s *settings.DepreciationSettings) error {
	clone := *s
	r.s.settings[s.TenantID] = &clone
	return nil
}

func (r *memSettings) List(_ context.Context) ([]settings.DepreciationSettings, error) {
	var out []settings.DepreciationSettings
	for _, s := range r.s.settings {
		out = append(out, *s)
	}
	return out, nil
}

func (r *memSettings) MarkHistoricalCompleted(_ context.Context, tenantID string) error {
	s, ok := r.s.settings[tenantID]
	if !ok {
		return settings.ErrSettingsNotFound
	}
	s.HistoricalCompleted = true
	return nil
}

func (r *memSettings) AccountOverrides(_ context.Context, tenantID string) (map[ledger.AccountRole]ledger.Account, error) {
	out := make(map[ledger.AccountRole]ledger.Account)
	for role, acct := range r.s.overrides[tenantID] {
		out[role] = acct
	}
	return out, nil
}

func (r *memSettings) UpsertAccountOverride(_ context.Context, tenantID string, role ledger.AccountRole, acct ledger.Account) error {
	if r.s.overrides[tenantID] == nil {
		r.s.overrides[tenantID] = make(map[ledger.AccountRole]ledger.Account)
	}
	r.s.overrides[tenantID][role] = acct
	return nil
}
