package operations

import (
	"context"
	"fmt"

	"github.com/debit-ledger/internal/domain/account"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/platform/metrics"
	"github.com/google/uuid"
)

// State is the position of a frame in its validate-then-apply lifecycle.
type State int

const (
	StateConstructed State = iota
	StateValidated
	StateRejected
	StateApplied
	StateApplyFailed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateValidated:
		return "validated"
	case StateRejected:
		return "rejected"
	case StateApplied:
		return "applied"
	case StateApplyFailed:
		return "apply_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome classifies a terminal result for reporting.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeInvalid Outcome = "invalid"
)

// Result is the terminal result of a frame. Inner is set when Code is OpInner.
type Result struct {
	Type    shared.OperationType
	Code    OperationResultCode
	Inner   ResultCode
	Outcome Outcome
	Reason  string
}

// Success reports whether the operation applied.
func (r Result) Success() bool {
	return r.Code == OpInner && r.Inner != nil && r.Inner.IsSuccess()
}

func (r Result) String() string {
	if r.Code != OpInner || r.Inner == nil {
		return r.Code.String()
	}
	return r.Inner.String()
}

var metricNames = map[shared.OperationType]string{
	shared.OperationTypeCreateAccount: "op-create-account",
	shared.OperationTypeManageDebit:   "op-manage-debit",
	shared.OperationTypeDirectDebit:   "op-direct-debit",
	shared.OperationTypePayment:       "op-payment",
	shared.OperationTypeChangeTrust:   "op-change-trust",
}

// Frame runs one operation for one source account.
type Frame struct {
	op     Operation
	source *account.Account
	state  State
	result Result
	set    bool
}

// NewFrame binds op to its effective source account. A nil source makes validation fail
// with OpNoAccount.
func NewFrame(op Operation, source *account.Account) *Frame {
	f := &Frame{op: op, source: source}
	if op.Body != nil {
		f.result.Type = op.Body.Type()
	}
	return f
}

func (f *Frame) Operation() Operation { return f.op }
func (f *Frame) State() State         { return f.state }
func (f *Frame) Result() Result       { return f.result }

// Source is the effective source account. Operations mutate it in place before storing it.
func (f *Frame) Source() *account.Account { return f.source }

// SourceID is the effective source account id.
func (f *Frame) SourceID() uuid.UUID {
	if f.source != nil {
		return f.source.ID
	}
	if f.op.SourceAccount != nil {
		return *f.op.SourceAccount
	}
	return uuid.Nil
}

// CheckValid validates the operation against its own fields and its source account. It
// does not touch ledger state. Calling it again returns the recorded verdict.
func (f *Frame) CheckValid() bool {
	if f.state != StateConstructed {
		return f.state == StateValidated || f.state == StateApplied || f.state == StateApplyFailed
	}

	switch {
	case f.op.Body == nil:
		f.setOuter(OpNotSupported, "not-supported")
	case f.source == nil:
		f.setOuter(OpNoAccount, "no-account")
	case f.op.Body.checkValid(f):
		f.state = StateValidated
		return true
	}

	f.state = StateRejected
	return false
}

// Apply applies a validated operation. The bool is the domain verdict, reflected in
// Result; the error is reserved for faults.
func (f *Frame) Apply(ctx context.Context, ac *ApplyContext) (bool, error) {
	if f.state != StateValidated {
		return false, shared.Faultf("apply of %s frame in state %s", f.result.Type, f.state)
	}
	f.set = false

	ok, err := f.op.Body.apply(ctx, f, ac)
	if err != nil {
		return false, err
	}
	if !f.set {
		return false, shared.Faultf("%s frame finished without a result code", f.result.Type)
	}
	if ok != f.result.Success() {
		return false, shared.Faultf("%s frame returned %t with result %s", f.result.Type, ok, f.result)
	}

	if ok {
		f.state = StateApplied
	} else {
		f.state = StateApplyFailed
	}
	return ok, nil
}

func (f *Frame) setOuter(code OperationResultCode, reason string) {
	f.result.Code = code
	f.result.Inner = nil
	f.result.Outcome = OutcomeInvalid
	f.result.Reason = reason
	f.set = true
}

func (f *Frame) setInner(code ResultCode, outcome Outcome, reason string) {
	f.result.Code = OpInner
	f.result.Inner = code
	f.result.Outcome = outcome
	f.result.Reason = reason
	f.set = true
}

// invalid records a validation rejection and returns false.
func (f *Frame) invalid(code ResultCode, reason string) bool {
	f.setInner(code, OutcomeInvalid, reason)
	return false
}

// fail records an apply rejection and returns false.
func (f *Frame) fail(code ResultCode, reason string) (bool, error) {
	f.setInner(code, OutcomeFailure, reason)
	return false, nil
}

// succeed records success and returns true.
func (f *Frame) succeed(code ResultCode) (bool, error) {
	f.setInner(code, OutcomeSuccess, "apply")
	return true, nil
}

// Run validates and applies f, then reports the terminal result to obs. A fault is
// returned as is and not reported.
func Run(ctx context.Context, f *Frame, ac *ApplyContext, obs metrics.Observer) (Result, error) {
	if f.CheckValid() {
		if _, err := f.Apply(ctx, ac); err != nil {
			return f.Result(), err
		}
	}

	res := f.Result()
	if obs != nil {
		name, ok := metricNames[res.Type]
		if !ok {
			name = "op-unknown"
		}
		obs.Observe(ctx, name, string(res.Outcome), res.Reason)
	}
	return res, nil
}
