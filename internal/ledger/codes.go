package ledger

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
)

const (
	PrefixBank  = "BA"
	PrefixCash  = "BC"
	PrefixActor = "AT"

	prefixedWidth = 5
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// NextPrefixedCode returns prefix followed by the highest trailing number
// among existing plus one, zero-padded to five digits. Codes without a
// trailing number are ignored.
func NextPrefixedCode(prefix string, existing []string) string {
	highest := 0
	for _, code := range existing {
		if !strings.HasPrefix(code, prefix) {
			continue
		}
		m := trailingDigits.FindStringSubmatch(code)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, prefixedWidth, highest+1)
}

// BankPrefix picks BC for cash boxes and BA for everything else.
func BankPrefix(t models.BankType) string {
	if t.Normalize() == models.BankTypeCash {
		return PrefixCash
	}
	return PrefixBank
}

// CodeRange is the candidate walk for a chart code: First, First+Step, ...
// up to Ceiling. Floor bounds the existing-code scan.
type CodeRange struct {
	Floor   int
	Ceiling int
	First   int
	Step    int
}

func (r CodeRange) String() string {
	return fmt.Sprintf("%04d-%04d", r.Floor, r.Ceiling)
}

// baseRange maps a category to its block of the chart. Expense nodes that
// look like cost of goods sold live in the 5000s.
func baseRange(category models.Category, name, parentCode string) (int, int) {
	switch models.Category(strings.ToLower(strings.TrimSpace(string(category)))) {
	case models.CategoryLiability:
		return 2000, 2999
	case models.CategoryEquity:
		return 3000, 3999
	case models.CategoryIncome:
		return 4000, 4999
	case models.CategoryExpense:
		lower := strings.ToLower(name)
		cogs := strings.Contains(lower, "cogs") || strings.Contains(lower, "cost of goods")
		if p, ok := numericCode(parentCode); ok && p >= 5000 && p <= 5999 {
			cogs = true
		}
		if cogs {
			return 5000, 5999
		}
		return 6000, 7999
	default:
		return 1000, 1999
	}
}

// ChartCodeRange derives where a new chart node's code may come from.
// parentCode is the immediate parent's code, empty for roots.
func ChartCodeRange(category models.Category, name string, isGroup bool, parentCode string) CodeRange {
	floor, ceiling := baseRange(category, name, parentCode)

	r := CodeRange{Floor: floor, Ceiling: ceiling, First: floor + 10, Step: 10}
	if isGroup {
		r.First, r.Step = floor, 100
	}

	p, ok := numericCode(parentCode)
	if !ok {
		return r
	}

	var span int
	switch {
	case p%1000 == 0:
		span = 999
		if isGroup {
			r.First, r.Step = p+100, 100
		} else {
			r.First, r.Step = p+10, 10
		}
	case p%100 == 0:
		span = 99
		r.First, r.Step = p+10, 10
	default:
		span = 9
		r.First, r.Step = p+1, 1
	}
	r.Floor = max(r.Floor, p)
	r.Ceiling = min(r.Ceiling, p+span)
	return r
}

// NextChartCode returns the first candidate in r not in existing.
func NextChartCode(r CodeRange, existing []string) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		taken[c] = struct{}{}
	}
	for n := r.First; n <= r.Ceiling; n += r.Step {
		c := fmt.Sprintf("%04d", n)
		if _, ok := taken[c]; !ok {
			return c, nil
		}
	}
	return "", ErrRangeExhausted
}

func numericCode(code string) (int, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, false
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	return n, true
}

func codeScope(branch, family string) string {
	return branch + "/" + family
}

// assignBankCode fills a blank bank account code inside tx.
func (l *Ledger) assignBankCode(ctx context.Context, tx interfaces.LedgerTx, b *models.BankAccount) error {
	if strings.TrimSpace(b.Code) != "" || b.Branch == "" {
		return nil
	}
	prefix := BankPrefix(b.Type)
	if err := tx.LockScope(ctx, codeScope(b.Branch, "bank:"+prefix)); err != nil {
		return fmt.Errorf("locking bank codes: %w", err)
	}
	existing, err := tx.BankAccountCodesWithPrefix(ctx, b.Branch, prefix)
	if err != nil {
		return fmt.Errorf("scanning bank codes: %w", err)
	}
	b.Code = NextPrefixedCode(prefix, existing)
	l.logger.Debug("bank account code assigned", zapBranch(b.Branch), zapCode(b.Code))
	return nil
}

// nextActorAccountCode reserves the next AT code among ledger accounts inside tx.
func (l *Ledger) nextActorAccountCode(ctx context.Context, tx interfaces.LedgerTx, branch string) (string, error) {
	if err := tx.LockScope(ctx, codeScope(branch, "account:"+PrefixActor)); err != nil {
		return "", fmt.Errorf("locking actor codes: %w", err)
	}
	existing, err := tx.AccountCodesWithPrefix(ctx, branch, PrefixActor)
	if err != nil {
		return "", fmt.Errorf("scanning actor codes: %w", err)
	}
	code := NextPrefixedCode(PrefixActor, existing)
	l.logger.Debug("actor account code assigned", zapBranch(branch), zapCode(code))
	return code, nil
}

// assignChartCode fills a blank chart node code inside tx.
func (l *Ledger) assignChartCode(ctx context.Context, tx interfaces.LedgerTx, n *models.ChartNode) error {
	if strings.TrimSpace(n.Code) != "" || n.Branch == "" {
		return nil
	}

	var parentCode string
	if n.ParentID != "" {
		parent, err := tx.GetChartNode(ctx, n.ParentID)
		if err != nil {
			return fmt.Errorf("loading parent chart node %s: %w", n.ParentID, err)
		}
		if parent.Branch != n.Branch {
			return invalid(ErrCrossBranchLink, "chart node", n.ID, "parent %s is in branch %q", parent.ID, parent.Branch)
		}
		parentCode = parent.Code
	}

	r := ChartCodeRange(n.Category, n.Name, n.IsGroup, parentCode)
	floor, _ := baseRange(n.Category, n.Name, parentCode)
	if err := tx.LockScope(ctx, codeScope(n.Branch, fmt.Sprintf("coa:%04d", floor))); err != nil {
		return fmt.Errorf("locking chart codes: %w", err)
	}
	existing, err := tx.ChartCodesInRange(ctx, n.Branch, fmt.Sprintf("%04d", r.Floor), fmt.Sprintf("%04d", r.Ceiling))
	if err != nil {
		return fmt.Errorf("scanning chart codes: %w", err)
	}
	code, err := NextChartCode(r, existing)
	if err != nil {
		return invalid(err, "chart node", n.ID, "range %s is full; choose another category or parent", r)
	}
	n.Code = code
	l.logger.Debug("chart code assigned", zapBranch(n.Branch), zapCode(code))
	return nil
}
