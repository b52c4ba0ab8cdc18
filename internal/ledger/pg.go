package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/model"
	"lv-marginfx/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore implements Store on Postgres. Concurrency control is
// row-level: locked reads use SELECT ... FOR UPDATE and the transaction
// runs ReadCommitted, so concurrent trades against one wallet serialize
// on the wallet row instead of retrying on serialization failures.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Within(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to commit transaction", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

const walletCols = "id, user_id, type, balance, equity, margin, free_margin, currency, leverage, created_at, updated_at"

func scanWallet(row pgx.Row) (model.Wallet, error) {
	var w model.Wallet
	var wt string
	err := row.Scan(&w.ID, &w.UserID, &wt, &w.Balance, &w.Equity, &w.Margin, &w.FreeMargin, &w.Currency, &w.Leverage, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return w, err
	}
	w.Type = types.WalletType(wt)
	return w, nil
}

func (t *pgTx) WalletForUpdate(ctx context.Context, walletID, userID string) (model.Wallet, error) {
	row := t.tx.QueryRow(ctx,
		"select "+walletCols+" from wallets where id = $1 and user_id = $2 for update",
		walletID, userID)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return w, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if err != nil {
		return w, apperr.Wrap(apperr.KindUnavailable, "failed to lock wallet", err)
	}
	return w, nil
}

func (t *pgTx) UpdateWallet(ctx context.Context, walletID, userID string, patch WalletPatch) (model.Wallet, error) {
	sets := []string{"updated_at = now()"}
	args := []any{walletID, userID}
	add := func(col string, v *decimal.Decimal) {
		if v != nil {
			args = append(args, *v)
			sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
		}
	}
	add("balance", patch.Balance)
	add("equity", patch.Equity)
	add("margin", patch.Margin)
	add("free_margin", patch.FreeMargin)

	q := "update wallets set " + joinSets(sets) + " where id = $1 and user_id = $2 returning " + walletCols
	w, err := scanWallet(t.tx.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return w, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if err != nil {
		return w, apperr.Wrap(apperr.KindUnavailable, "failed to update wallet", err)
	}
	return w, nil
}

func (t *pgTx) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.RequestedAt.IsZero() {
		o.RequestedAt = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx,
		"insert into orders (id, user_id, instrument, side, order_kind, volume, requested_price, executed_price, one_click, status, position_id, requested_at, executed_at) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)",
		o.ID, o.UserID, o.Instrument, string(o.Side), string(o.OrderKind), o.Volume, o.RequestedPrice, o.ExecutedPrice, o.OneClick, string(o.Status), o.PositionID, o.RequestedAt, o.ExecutedAt)
	if err != nil {
		return o, apperr.Wrap(apperr.KindUnavailable, "failed to create order", err)
	}
	return o, nil
}

func (t *pgTx) MarkOrderFilled(ctx context.Context, orderID, userID string, executedPrice decimal.Decimal, executedAt time.Time, positionID string) error {
	tag, err := t.tx.Exec(ctx,
		"update orders set status = $1, executed_price = $2, executed_at = $3, position_id = $4 where id = $5 and user_id = $6",
		string(types.OrderStatusFilled), executedPrice, executedAt, positionID, orderID, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to fill order", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "order not found")
	}
	return nil
}

const orderCols = "id, user_id, instrument, side, order_kind, volume, requested_price, executed_price, one_click, status, position_id, requested_at, executed_at"

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	var side, kind, status string
	err := row.Scan(&o.ID, &o.UserID, &o.Instrument, &side, &kind, &o.Volume, &o.RequestedPrice, &o.ExecutedPrice, &o.OneClick, &status, &o.PositionID, &o.RequestedAt, &o.ExecutedAt)
	if err != nil {
		return o, err
	}
	o.Side = types.Side(side)
	o.OrderKind = types.OrderKind(kind)
	o.Status = types.OrderStatus(status)
	return o, nil
}

func (t *pgTx) OrderByPositionID(ctx context.Context, positionID string) (model.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, "select "+orderCols+" from orders where position_id = $1", positionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return o, apperr.New(apperr.KindNotFound, "order not found")
	}
	if err != nil {
		return o, apperr.Wrap(apperr.KindUnavailable, "failed to fetch order", err)
	}
	return o, nil
}

func (t *pgTx) CreatePosition(ctx context.Context, p model.Position) (model.Position, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx,
		"insert into positions (id, user_id, instrument, side, volume, required_margin, open_price, close_price, sl, tp, status, opened_at, closed_at, pnl) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)",
		p.ID, p.UserID, p.Instrument, string(p.Side), p.Volume, p.RequiredMargin, p.OpenPrice, p.ClosePrice, p.SL, p.TP, string(p.Status), p.OpenedAt, p.ClosedAt, p.PnL)
	if err != nil {
		return p, apperr.Wrap(apperr.KindUnavailable, "failed to create position", err)
	}
	return p, nil
}

const positionCols = "id, user_id, instrument, side, volume, required_margin, open_price, close_price, sl, tp, status, opened_at, closed_at, pnl"

func scanPosition(row pgx.Row) (model.Position, error) {
	var p model.Position
	var side, status string
	err := row.Scan(&p.ID, &p.UserID, &p.Instrument, &side, &p.Volume, &p.RequiredMargin, &p.OpenPrice, &p.ClosePrice, &p.SL, &p.TP, &status, &p.OpenedAt, &p.ClosedAt, &p.PnL)
	if err != nil {
		return p, err
	}
	p.Side = types.Side(side)
	p.Status = types.PositionStatus(status)
	return p, nil
}

func (t *pgTx) PositionForUpdate(ctx context.Context, positionID, userID string) (model.Position, error) {
	p, err := scanPosition(t.tx.QueryRow(ctx,
		"select "+positionCols+" from positions where id = $1 and user_id = $2 for update",
		positionID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, apperr.New(apperr.KindNotFound, "position not found")
	}
	if err != nil {
		return p, apperr.Wrap(apperr.KindUnavailable, "failed to lock position", err)
	}
	return p, nil
}

func (t *pgTx) UpdatePosition(ctx context.Context, positionID, userID string, patch PositionPatch) (model.Position, error) {
	sets := []string{}
	args := []any{positionID, userID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Volume != nil {
		add("volume", *patch.Volume)
	}
	if patch.RequiredMargin != nil {
		add("required_margin", *patch.RequiredMargin)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.ClosePrice != nil {
		add("close_price", *patch.ClosePrice)
	}
	if patch.ClosedAt != nil {
		add("closed_at", *patch.ClosedAt)
	}
	if patch.PnL != nil {
		add("pnl", *patch.PnL)
	}
	if len(sets) == 0 {
		return model.Position{}, apperr.New(apperr.KindInvalid, "empty position patch")
	}
	q := "update positions set " + joinSets(sets) + " where id = $1 and user_id = $2 returning " + positionCols
	p, err := scanPosition(t.tx.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, apperr.New(apperr.KindNotFound, "position not found")
	}
	if err != nil {
		return p, apperr.Wrap(apperr.KindUnavailable, "failed to update position", err)
	}
	return p, nil
}

func (t *pgTx) CreateDeal(ctx context.Context, d model.Deal) (model.Deal, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Time.IsZero() {
		d.Time = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx,
		"insert into deals (id, order_id, position_id, type, direction, price, time, volume, volume_closed, instrument, profit, sl, tp, commission, fee, swap, reason) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)",
		d.ID, d.OrderID, d.PositionID, d.Type, d.Direction, d.Price, d.Time, d.Volume, d.VolumeClosed, d.Instrument, d.Profit, d.SL, d.TP, d.Commission, d.Fee, d.Swap, d.Reason)
	if err != nil {
		return d, apperr.Wrap(apperr.KindUnavailable, "failed to create deal", err)
	}
	return d, nil
}

// --- unlocked reads ---

func (s *PGStore) CreateWallet(ctx context.Context, w model.Wallet) (model.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	_, err := s.pool.Exec(ctx,
		"insert into wallets (id, user_id, type, balance, equity, margin, free_margin, currency, leverage, created_at, updated_at) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)",
		w.ID, w.UserID, string(w.Type), w.Balance, w.Equity, w.Margin, w.FreeMargin, w.Currency, w.Leverage, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		// The wallets table carries unique (user_id, type).
		if isUniqueViolation(err) {
			return w, apperr.New(apperr.KindConflict, "wallet already exists")
		}
		return w, apperr.Wrap(apperr.KindUnavailable, "failed to create wallet", err)
	}
	return w, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PGStore) WalletByType(ctx context.Context, userID string, wt types.WalletType) (model.Wallet, error) {
	w, err := scanWallet(s.pool.QueryRow(ctx,
		"select "+walletCols+" from wallets where user_id = $1 and type = $2", userID, string(wt)))
	if errors.Is(err, pgx.ErrNoRows) {
		return w, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if err != nil {
		return w, apperr.Wrap(apperr.KindUnavailable, "failed to fetch wallet", err)
	}
	return w, nil
}

func (s *PGStore) WalletByID(ctx context.Context, walletID, userID string) (model.Wallet, error) {
	w, err := scanWallet(s.pool.QueryRow(ctx,
		"select "+walletCols+" from wallets where id = $1 and user_id = $2", walletID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return w, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if err != nil {
		return w, apperr.Wrap(apperr.KindUnavailable, "failed to fetch wallet", err)
	}
	return w, nil
}

func (s *PGStore) OpenPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		"select "+positionCols+" from positions where user_id = $1 and status = 'open' order by opened_at desc", userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to fetch positions", err)
	}
	defer rows.Close()
	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "failed to scan position", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) DealHistory(ctx context.Context, userID string, from, to time.Time) ([]model.DealHistoryRow, error) {
	rows, err := s.pool.Query(ctx, `
		select d.id, d.position_id, d.type, d.instrument, d.volume, d.profit,
		       p.open_price, d.price, d.sl, d.tp, d.commission, d.fee, d.swap,
		       p.opened_at, d.time, d.reason
		from deals d
		join positions p on p.id = d.position_id
		where p.user_id = $1 and d.direction = $2 and d.time >= $3 and d.time <= $4
		order by d.time desc`,
		userID, types.DealDirectionClose, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to fetch deal history", err)
	}
	defer rows.Close()
	var out []model.DealHistoryRow
	for rows.Next() {
		var r model.DealHistoryRow
		var closePrice decimal.Decimal
		var closeTime time.Time
		if err := rows.Scan(&r.DealID, &r.PositionID, &r.Type, &r.Instrument, &r.Volume, &r.Profit,
			&r.OpenPrice, &closePrice, &r.SL, &r.TP, &r.Commission, &r.Fee, &r.Swap,
			&r.OpenTime, &closeTime, &r.Reason); err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "failed to scan deal history", err)
		}
		r.ClosePrice = &closePrice
		r.CloseTime = &closeTime
		out = append(out, r)
	}
	return out, rows.Err()
}

func joinSets(sets []string) string {
	out := sets[0]
	for i := 1; i < len(sets); i++ {
		out += ", " + sets[i]
	}
	return out
}

var _ Store = (*PGStore)(nil)
