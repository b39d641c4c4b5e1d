package service

import (
	"testing"
	"time"
)

func TestPolicy_SweepInterval(t *testing.T) {
	if got := DefaultPolicy().SweepInterval(); got != time.Minute {
		t.Errorf("default SweepInterval = %v, want 1m", got)
	}
	p := DefaultPolicy()
	p.LoginPerPhone.Window = 5 * time.Minute
	if got := p.SweepInterval(); got != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", got)
	}
	if got := (Policy{}).SweepInterval(); got != 0 {
		t.Errorf("empty policy SweepInterval = %v, want 0", got)
	}
}
