package app

import "time"

// Test-only hooks so the external test package can inject deterministic
// clocks into services whose clock field is unexported.
func (s *AuthService) SetNow(now func() time.Time) { s.now = now }

func (s *JudgingService) SetNow(now func() time.Time) { s.now = now }

func (s *SubmissionService) SetNow(now func() time.Time) { s.now = now }
