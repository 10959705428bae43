// Package ledgerctl implements the administrative commands of the ledgerctl binary.
package ledgerctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/debit"
	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/ledger/delta"
	"github.com/google/uuid"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrRootExists      = errors.New("root account already exists")
	ErrConfirmRequired = errors.New("schema-drop needs -yes")
)

// AccountWriter is the part of the account entry store bootstrap writes through.
type AccountWriter interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Add(ctx context.Context, d *delta.Delta, a *account.Account) error
}

// Tx is the durable transaction bootstrap commits the root account in.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Deps are the stores the commands run against.
type Deps struct {
	Headers header.Repository
	Debits  debit.Repository
	// BeginAccounts opens a transaction and returns the account store bound to it.
	BeginAccounts func(ctx context.Context) (AccountWriter, Tx, error)
	// Genesis seeds the header table when bootstrap finds it empty.
	Genesis header.Header
	Cache   delta.Cache
	Out     io.Writer
	Logger  *slog.Logger
	Now     func() time.Time
}

type command struct {
	usage string
	run   func(ctx context.Context, d *Deps, args []string) error
}

var commands = map[string]command{
	"schema-create": {usage: "create the debits table if missing", run: schemaCreate},
	"schema-drop":   {usage: "drop the debits table (-yes)", run: schemaDrop},
	"dump-debits":   {usage: "print every debit authorization grouped by owner", run: dumpDebits},
	"count-debits":  {usage: "print the number of debit authorizations", run: countDebits},
	"bootstrap":     {usage: "write the genesis header and the root account (-root <uuid> -balance <stroops>)", run: bootstrap},
	"close-ledger":  {usage: "close the open ledger and open the next one", run: closeLedger},
}

// Run dispatches args[0] to its command.
func Run(ctx context.Context, d Deps, args []string) error {
	if d.Now == nil {
		d.Now = time.Now
	}
	if len(args) == 0 {
		Usage(d.Out)
		return ErrUnknownCommand
	}
	cmd, ok := commands[args[0]]
	if !ok {
		Usage(d.Out)
		return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
	return cmd.run(ctx, &d, args[1:])
}

// Usage lists the commands on w.
func Usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: ledgerctl <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Writes bypass a running transaction processor's entry cache. Send it SIGHUP")
	fmt.Fprintln(w, "after bootstrap, schema-create or schema-drop, or run them with it stopped.")
}

func schemaCreate(ctx context.Context, d *Deps, _ []string) error {
	if err := d.Debits.CreateSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintln(d.Out, "debits schema ready")
	return nil
}

func schemaDrop(ctx context.Context, d *Deps, args []string) error {
	fs := flag.NewFlagSet("schema-drop", flag.ContinueOnError)
	fs.SetOutput(d.Out)
	yes := fs.Bool("yes", false, "confirm dropping every debit authorization")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return ErrConfirmRequired
	}

	if err := d.Debits.DropAll(ctx); err != nil {
		return err
	}
	d.Logger.Warn("Debits table dropped")
	fmt.Fprintln(d.Out, "debits schema dropped")
	return nil
}

type ownerDebits struct {
	Owner          uuid.UUID              `json:"owner"`
	Authorizations []*debit.Authorization `json:"authorizations"`
}

func dumpDebits(ctx context.Context, d *Deps, _ []string) error {
	all, err := d.Debits.LoadAll(ctx)
	if err != nil {
		return err
	}

	owners := make([]uuid.UUID, 0, len(all))
	for owner := range all {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].String() < owners[j].String() })

	enc := json.NewEncoder(d.Out)
	for _, owner := range owners {
		auths := all[owner]
		sort.Slice(auths, func(i, j int) bool { return auths[i].Key().String() < auths[j].Key().String() })
		if err := enc.Encode(ownerDebits{Owner: owner, Authorizations: auths}); err != nil {
			return fmt.Errorf("failed to write debits of %s: %w", owner, err)
		}
	}
	return nil
}

func countDebits(ctx context.Context, d *Deps, _ []string) error {
	n, err := d.Debits.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(d.Out, n)
	return nil
}

func bootstrap(ctx context.Context, d *Deps, args []string) error {
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	fs.SetOutput(d.Out)
	rootFlag := fs.String("root", "", "root account id (uuid)")
	balance := fs.Int64("balance", 0, "root account native balance in stroops")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root, err := uuid.Parse(*rootFlag)
	if err != nil || root == uuid.Nil {
		return fmt.Errorf("-root must be a non-nil uuid: %q", *rootFlag)
	}

	genesis := d.Genesis
	if genesis.LedgerSeq == 0 {
		genesis.LedgerSeq = 1
	}
	genesis.ClosedAt = d.Now().UTC()
	if err := d.Headers.Init(ctx, genesis); err != nil {
		return err
	}
	h, err := d.Headers.Current(ctx)
	if err != nil {
		return err
	}

	if *balance < h.MinimumBalance(0) {
		return fmt.Errorf("-balance %d is below the minimum balance %d", *balance, h.MinimumBalance(0))
	}

	accounts, tx, err := d.BeginAccounts(ctx)
	if err != nil {
		return err
	}
	changes := delta.New(h, d.Cache)

	exists, err := accounts.Exists(ctx, root)
	if err == nil && exists {
		err = ErrRootExists
	}
	if err == nil {
		acc := account.NewAccount(root, h.StartingSequenceNumber())
		acc.Balance = *balance
		err = accounts.Add(ctx, changes, acc)
	}
	if err != nil {
		if rbErr := changes.Rollback(ctx, tx); rbErr != nil {
			d.Logger.Error("Failed to roll back bootstrap", "error", rbErr)
		}
		return err
	}

	if err := changes.Commit(ctx, tx); err != nil {
		return err
	}

	d.Logger.Info("Ledger bootstrapped", "ledger_seq", h.LedgerSeq, "root", root.String(), "balance", *balance)
	fmt.Fprintf(d.Out, "ledger %d open, root account %s funded with %d\n", h.LedgerSeq, root, *balance)
	return nil
}

func closeLedger(ctx context.Context, d *Deps, _ []string) error {
	next, err := d.Headers.Advance(ctx, d.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(d.Out, "ledger %d open\n", next.LedgerSeq)
	return nil
}
