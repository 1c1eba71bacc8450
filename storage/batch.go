package storage

import (
	"context"
	"fmt"
)

// OpKind identifies a single batch operation.
type OpKind int

const (
	OpSet OpKind = iota
	OpRemove
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one step of an ordered batch.
type Op struct {
	Kind  OpKind
	Key   string
	Value string
}

// Set returns an Op that writes value under key.
func Set(key, value string) Op {
	return Op{Kind: OpSet, Key: key, Value: value}
}

// Remove returns an Op that deletes key.
func Remove(key string) Op {
	return Op{Kind: OpRemove, Key: key}
}

// BatchError reports where an ordered batch stopped. The first Applied
// operations were written and are not rolled back.
type BatchError struct {
	Applied int
	Op      Op
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch stopped after %d ops: %s %q: %v", e.Applied, e.Op.Kind, e.Op.Key, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Apply runs ops against s in order and stops at the first failure.
//
// Apply is not a transaction. A failure (or a crash) part way through leaves
// the earlier operations in place; the returned *BatchError says how many
// landed so callers can log or repair the divergence.
func Apply(ctx context.Context, s Store, ops ...Op) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return &BatchError{Applied: i, Op: op, Err: err}
		}
		var err error
		switch op.Kind {
		case OpSet:
			err = s.Set(ctx, op.Key, op.Value)
		case OpRemove:
			err = s.Remove(ctx, op.Key)
		default:
			err = fmt.Errorf("unknown op kind %s", op.Kind)
		}
		if err != nil {
			return &BatchError{Applied: i, Op: op, Err: err}
		}
	}
	return nil
}
