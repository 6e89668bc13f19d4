package loan

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusCustodianSigned, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusApproved, false},
		{StatusCustodianSigned, StatusApproved, true},
		{StatusCustodianSigned, StatusRejected, true},
		{StatusCustodianSigned, StatusCancelled, false},
		{StatusApproved, StatusOnLoan, true},
		{StatusOnLoan, StatusReturned, true},
		{StatusOnLoan, StatusRejected, false},
		{StatusReturned, StatusOnLoan, false},
		{StatusRejected, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, StatusPending, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStageOutcome(t *testing.T) {
	if to, ok := StageOutcome(StageCustodian, true); !ok || to != StatusCustodianSigned {
		t.Fatalf("custodian approve: got (%s, %v)", to, ok)
	}
	if to, ok := StageOutcome(StageCustodian, false); !ok || to != StatusRejected {
		t.Fatalf("custodian reject: got (%s, %v)", to, ok)
	}
	if to, ok := StageOutcome(StageCoordinator, false); !ok || to != StatusRejected {
		t.Fatalf("coordinator reject: got (%s, %v)", to, ok)
	}
	// 门卫环节没有拒绝分支
	if _, ok := StageOutcome(StageGuardExit, false); ok {
		t.Fatal("guard exit should not support rejection")
	}
	if _, ok := StageOutcome(StageGuardEntry, false); ok {
		t.Fatal("guard entry should not support rejection")
	}
	if to, ok := StageOutcome(StageGuardEntry, true); !ok || to != StatusReturned {
		t.Fatalf("guard entry approve: got (%s, %v)", to, ok)
	}
	if _, ok := StageOutcome(Stage("bogus"), true); ok {
		t.Fatal("unknown stage should not resolve")
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusReturned, StatusRejected, StatusCancelled} {
		if !Terminal(s) {
			t.Errorf("Terminal(%s) = false, want true", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusCustodianSigned, StatusApproved, StatusOnLoan} {
		if Terminal(s) {
			t.Errorf("Terminal(%s) = true, want false", s)
		}
	}
}

func TestApplyTransitionTimestamps(t *testing.T) {
	now := time.Now()
	r := &Request{Status: StatusPending}

	if err := ApplyTransition(r, StatusCustodianSigned, now); err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if r.Status != StatusCustodianSigned || r.CustodianSignedAt == nil {
		t.Fatalf("custodian signed not recorded: status=%s ts=%v", r.Status, r.CustodianSignedAt)
	}
	if err := ApplyTransition(r, StatusApproved, now); err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if r.ApprovedAt == nil {
		t.Fatal("approved timestamp not set")
	}
	if err := ApplyTransition(r, StatusOnLoan, now); err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if err := ApplyTransition(r, StatusReturned, now); err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if r.ExitAt == nil || r.ReturnedAt == nil {
		t.Fatal("exit/return timestamps not set")
	}

	// 终态后不允许再流转
	if err := ApplyTransition(r, StatusOnLoan, now); err == nil {
		t.Fatal("expected error for transition out of terminal state")
	}
}

func TestApplyTransitionRejectsInvalid(t *testing.T) {
	r := &Request{Status: StatusPending}
	if err := ApplyTransition(r, StatusOnLoan, time.Now()); err == nil {
		t.Fatal("expected error for pending -> on_loan")
	}
	if r.Status != StatusPending {
		t.Fatalf("status mutated on invalid transition: %s", r.Status)
	}
}
