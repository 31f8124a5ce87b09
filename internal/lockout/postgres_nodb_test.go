package lockout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/************ fake pgx ************/
type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakePool struct {
	qrErr      error
	qrFailsRet int

	lastExecSQL string
	execErr     error
}

func (f *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastExecSQL = sql
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if strings.Contains(sql, "RETURNING failed_attempts") {
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			*(dest[0].(*int)) = f.qrFailsRet
			return nil
		}}
	}
	return fakeRow{scan: func(dest ...any) error { return errors.New("unexpected query") }}
}

var testID = uuid.Must(uuid.NewV4())

func TestFailure_Increments_NoLock(t *testing.T) {
	fp := &fakePool{qrFailsRet: 2}
	p := NewPGWithQuerier(fp, Config{MaxAttempts: 5, LockFor: 30 * time.Minute})

	locked, dur, err := p.Failure(context.Background(), "school-A", testID)
	if err != nil || locked || dur != 0 {
		t.Fatalf("Failure no lock: locked=%v dur=%v err=%v", locked, dur, err)
	}
}

func TestFailure_LocksAtThreshold(t *testing.T) {
	fp := &fakePool{qrFailsRet: 5}
	p := NewPGWithQuerier(fp, Config{MaxAttempts: 5, LockFor: 10 * time.Minute})

	locked, dur, err := p.Failure(context.Background(), "school-A", testID)
	if err != nil || !locked || dur != 10*time.Minute {
		t.Fatalf("Failure lock: locked=%v dur=%v err=%v", locked, dur, err)
	}
	if !strings.Contains(fp.lastExecSQL, "SET locked_until") {
		t.Fatalf("must persist locked_until, exec=%s", fp.lastExecSQL)
	}
}

func TestFailure_LocksAboveThreshold(t *testing.T) {
	fp := &fakePool{qrFailsRet: 7}
	p := NewPGWithQuerier(fp, Config{MaxAttempts: 5, LockFor: 10 * time.Minute})

	locked, _, err := p.Failure(context.Background(), "school-A", testID)
	if err != nil || !locked {
		t.Fatalf("Failure above threshold: locked=%v err=%v", locked, err)
	}
}

func TestFailure_QueryErrorPropagates(t *testing.T) {
	fp := &fakePool{qrErr: errors.New("db boom")}
	p := NewPGWithQuerier(fp, Config{})

	if _, _, err := p.Failure(context.Background(), "school-A", testID); err == nil {
		t.Fatalf("want error from returning failed_attempts")
	}
}

func TestFailure_LockExecErrorPropagates(t *testing.T) {
	fp := &fakePool{qrFailsRet: 5, execErr: errors.New("exec fail")}
	p := NewPGWithQuerier(fp, Config{MaxAttempts: 5})

	if _, _, err := p.Failure(context.Background(), "school-A", testID); err == nil {
		t.Fatalf("want exec error when persisting lock")
	}
}

func TestSuccess_ResetsCountersAndStampsLogin(t *testing.T) {
	fp := &fakePool{}
	p := NewPGWithQuerier(fp, Config{})

	if err := p.Success(context.Background(), "school-A", testID); err != nil {
		t.Fatalf("Success err: %v", err)
	}
	if !strings.Contains(fp.lastExecSQL, "failed_attempts=0") ||
		!strings.Contains(fp.lastExecSQL, "last_login_at=now()") {
		t.Fatalf("unexpected exec: %s", fp.lastExecSQL)
	}
}

func TestSuccess_ExecErrorPropagates(t *testing.T) {
	fp := &fakePool{execErr: errors.New("exec fail")}
	p := NewPGWithQuerier(fp, Config{})

	if err := p.Success(context.Background(), "school-A", testID); err == nil {
		t.Fatalf("want exec error")
	}
}
