package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
)

const approvalColumns = `approved, approved_by, approved_at, voided_at`

type approvalScan struct {
	approved   bool
	approvedBy string
	approvedAt sql.NullTime
	voidedAt   sql.NullTime
}

func (a *approvalScan) dest() []any {
	return []any{&a.approved, &a.approvedBy, &a.approvedAt, &a.voidedAt}
}

func (a *approvalScan) approval() models.Approval {
	return models.Approval{
		Approved:   a.approved,
		ApprovedBy: a.approvedBy,
		ApprovedAt: timePtr(a.approvedAt),
		VoidedAt:   timePtr(a.voidedAt),
	}
}

func approvalArgs(a models.Approval) []any {
	return []any{a.Approved, a.ApprovedBy, nullTime(a.ApprovedAt), nullTime(a.VoidedAt)}
}

const approvalUpdate = `approved = excluded.approved, approved_by = excluded.approved_by,
			approved_at = excluded.approved_at, voided_at = excluded.voided_at`

func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, interfaces.ErrNotFound)
	}
	return fmt.Errorf("loading %s: %w", entity, err)
}

func (t *sqlTx) GetCashTransfer(ctx context.Context, id string) (models.CashTransfer, error) {
	var ct models.CashTransfer
	var ap approvalScan
	dest := append([]any{
		&ct.ID, &ct.Branch, &ct.TransferNo, &ct.TransferDate, &ct.FromAccountID,
		&ct.ReferenceNo, &ct.Total, &ct.Note, &ct.CreatedAt, &ct.UpdatedAt,
	}, ap.dest()...)
	err := t.tx.QueryRowContext(ctx, t.s.dialect.Rebind(`SELECT id, branch, transfer_no, transfer_date, from_account_id,
		reference_no, total, note, created_at, updated_at, `+approvalColumns+`
		FROM cash_transfers WHERE id = ?`), id).Scan(dest...)
	if err != nil {
		return models.CashTransfer{}, notFound(err, "cash transfer", id)
	}
	ct.Approval = ap.approval()

	rows, err := t.tx.QueryContext(ctx, t.s.dialect.Rebind(`SELECT id, to_account_id, amount, note
		FROM cash_transfer_items WHERE transfer_id = ? ORDER BY position`), id)
	if err != nil {
		return models.CashTransfer{}, fmt.Errorf("loading cash transfer items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it models.CashTransferItem
		if err := rows.Scan(&it.ID, &it.ToAccountID, &it.Amount, &it.Note); err != nil {
			return models.CashTransfer{}, fmt.Errorf("scanning cash transfer item: %w", err)
		}
		ct.Items = append(ct.Items, it)
	}
	return ct, rows.Err()
}

func (t *sqlTx) SaveCashTransfer(ctx context.Context, ct models.CashTransfer) error {
	args := append([]any{
		ct.ID, ct.Branch, ct.TransferNo, ct.TransferDate, ct.FromAccountID,
		ct.ReferenceNo, ct.Total, ct.Note, ct.CreatedAt, ct.UpdatedAt,
	}, approvalArgs(ct.Approval)...)
	err := t.exec(ctx, "saving cash transfer",
		`INSERT INTO cash_transfers (id, branch, transfer_no, transfer_date, from_account_id,
			reference_no, total, note, created_at, updated_at, `+approvalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			branch = excluded.branch, transfer_no = excluded.transfer_no,
			transfer_date = excluded.transfer_date, from_account_id = excluded.from_account_id,
			reference_no = excluded.reference_no, total = excluded.total, note = excluded.note,
			updated_at = excluded.updated_at, `+approvalUpdate, args...)
	if err != nil {
		return err
	}

	if err := t.exec(ctx, "clearing cash transfer items", `DELETE FROM cash_transfer_items WHERE transfer_id = ?`, ct.ID); err != nil {
		return err
	}
	for i, it := range ct.Items {
		err := t.exec(ctx, "saving cash transfer item",
			`INSERT INTO cash_transfer_items (id, transfer_id, position, to_account_id, amount, note)
			VALUES (?, ?, ?, ?, ?, ?)`,
			it.ID, ct.ID, i, it.ToAccountID, it.Amount, it.Note)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) GetJournalVoucher(ctx context.Context, id string) (models.JournalVoucher, error) {
	var jv models.JournalVoucher
	var ap approvalScan
	dest := append([]any{
		&jv.ID, &jv.Branch, &jv.VoucherNo, &jv.VoucherDate, &jv.Narration,
		&jv.Total, &jv.Note, &jv.CreatedAt, &jv.UpdatedAt,
	}, ap.dest()...)
	err := t.tx.QueryRowContext(ctx, t.s.dialect.Rebind(`SELECT id, branch, voucher_no, voucher_date, narration,
		total, note, created_at, updated_at, `+approvalColumns+`
		FROM journal_vouchers WHERE id = ?`), id).Scan(dest...)
	if err != nil {
		return models.JournalVoucher{}, notFound(err, "journal voucher", id)
	}
	jv.Approval = ap.approval()

	rows, err := t.tx.QueryContext(ctx, t.s.dialect.Rebind(`SELECT id, account_id, dr_amount, cr_amount, line_note
		FROM journal_voucher_items WHERE voucher_id = ? ORDER BY position`), id)
	if err != nil {
		return models.JournalVoucher{}, fmt.Errorf("loading journal voucher items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it models.JournalVoucherItem
		var account sql.NullString
		if err := rows.Scan(&it.ID, &account, &it.DrAmount, &it.CrAmount, &it.LineNote); err != nil {
			return models.JournalVoucher{}, fmt.Errorf("scanning journal voucher item: %w", err)
		}
		it.AccountID = account.String
		jv.Items = append(jv.Items, it)
	}
	return jv, rows.Err()
}

func (t *sqlTx) SaveJournalVoucher(ctx context.Context, jv models.JournalVoucher) error {
	args := append([]any{
		jv.ID, jv.Branch, jv.VoucherNo, jv.VoucherDate, jv.Narration,
		jv.Total, jv.Note, jv.CreatedAt, jv.UpdatedAt,
	}, approvalArgs(jv.Approval)...)
	err := t.exec(ctx, "saving journal voucher",
		`INSERT INTO journal_vouchers (id, branch, voucher_no, voucher_date, narration,
			total, note, created_at, updated_at, `+approvalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			branch = excluded.branch, voucher_no = excluded.voucher_no,
			voucher_date = excluded.voucher_date, narration = excluded.narration,
			total = excluded.total, note = excluded.note,
			updated_at = excluded.updated_at, `+approvalUpdate, args...)
	if err != nil {
		return err
	}

	if err := t.exec(ctx, "clearing journal voucher items", `DELETE FROM journal_voucher_items WHERE voucher_id = ?`, jv.ID); err != nil {
		return err
	}
	for i, it := range jv.Items {
		err := t.exec(ctx, "saving journal voucher item",
			`INSERT INTO journal_voucher_items (id, voucher_id, position, account_id, dr_amount, cr_amount, line_note)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ID, jv.ID, i, nullString(it.AccountID), it.DrAmount, it.CrAmount, it.LineNote)
		if err != nil {
			return err
		}
	}
	return nil
}

const chequeColumns = `id, branch, cheque_no, bank_account_id, chart_node_id, actor_id, cheque_date, received_date,
		amount, status, direction, memo, total, note, created_at, updated_at, ` + approvalColumns

func (t *sqlTx) GetCheque(ctx context.Context, id string) (models.Cheque, error) {
	var c models.Cheque
	var ap approvalScan
	var bank, chart, actor sql.NullString
	var chequeDate, receivedDate sql.NullTime
	var status, direction string
	dest := append([]any{
		&c.ID, &c.Branch, &c.ChequeNo, &bank, &chart, &actor, &chequeDate, &receivedDate,
		&c.Amount, &status, &direction, &c.Memo, &c.Total, &c.Note, &c.CreatedAt, &c.UpdatedAt,
	}, ap.dest()...)
	err := t.tx.QueryRowContext(ctx, t.s.dialect.Rebind(`SELECT `+chequeColumns+` FROM cheques WHERE id = ?`), id).Scan(dest...)
	if err != nil {
		return models.Cheque{}, notFound(err, "cheque", id)
	}
	c.BankAccountID, c.ChartNodeID, c.ActorID = bank.String, chart.String, actor.String
	c.ChequeDate, c.ReceivedDate = timePtr(chequeDate), timePtr(receivedDate)
	c.Status, c.Direction = models.ChequeStatus(status), models.ChequeStatus(direction)
	c.Approval = ap.approval()
	return c, nil
}

func (t *sqlTx) SaveCheque(ctx context.Context, c models.Cheque) error {
	args := append([]any{
		c.ID, c.Branch, c.ChequeNo, nullString(c.BankAccountID), nullString(c.ChartNodeID), nullString(c.ActorID),
		nullTime(c.ChequeDate), nullTime(c.ReceivedDate), c.Amount, string(c.Status), string(c.Direction),
		c.Memo, c.Total, c.Note, c.CreatedAt, c.UpdatedAt,
	}, approvalArgs(c.Approval)...)
	return t.exec(ctx, "saving cheque",
		`INSERT INTO cheques (`+chequeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			branch = excluded.branch, cheque_no = excluded.cheque_no,
			bank_account_id = excluded.bank_account_id, chart_node_id = excluded.chart_node_id,
			actor_id = excluded.actor_id, cheque_date = excluded.cheque_date,
			received_date = excluded.received_date, amount = excluded.amount, status = excluded.status,
			direction = excluded.direction, memo = excluded.memo, total = excluded.total, note = excluded.note,
			updated_at = excluded.updated_at, `+approvalUpdate, args...)
}

// Compile-time check: sqlTx implements LedgerTx.
var _ interfaces.LedgerTx = (*sqlTx)(nil)
