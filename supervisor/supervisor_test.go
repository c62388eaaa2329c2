package supervisor

import "testing"

func TestOnMenuAlwaysEntersCloneRead(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Supervisor)
	}{
		{"from bridge", func(s *Supervisor) {}},
		{"from clone/write", func(s *Supervisor) {
			s.OnMenu()
			s.SetDone(true)
			s.OnOK()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			tt.setup(s)
			s.OnMenu()
			if s.MainMenu() != Clone {
				t.Errorf("MainMenu() = %v, want Clone", s.MainMenu())
			}
			if s.Submode() != Read {
				t.Errorf("Submode() = %v, want Read", s.Submode())
			}
			if s.Done() {
				t.Error("Done() = true, want false right after entering READ")
			}
		})
	}
}

func TestOnOK_AdvancesToWriteOnlyWhenDone(t *testing.T) {
	s := New(nil)
	s.OnMenu()
	s.OnOK() // done is still false -> should fall back to BRIDGE
	if s.MainMenu() != Bridge {
		t.Fatalf("MainMenu() = %v, want Bridge when OK pressed before done", s.MainMenu())
	}

	s.OnMenu()
	s.SetDone(true)
	s.OnOK()
	if s.MainMenu() != Clone || s.Submode() != Write {
		t.Fatalf("MainMenu/Submode = %v/%v, want Clone/Write", s.MainMenu(), s.Submode())
	}
}

func TestOnOK_FromWriteReturnsToBridge(t *testing.T) {
	s := New(nil)
	s.OnMenu()
	s.SetDone(true)
	s.OnOK() // now in CLONE/WRITE
	s.OnOK() // pressing OK again should not re-match CLONE/READ(done)
	if s.MainMenu() != Bridge {
		t.Fatalf("MainMenu() = %v, want Bridge", s.MainMenu())
	}
}

func TestOnProfileInvokesDumpWithoutChangingMode(t *testing.T) {
	var calls int
	s := New(func() { calls++ })
	s.OnMenu()
	before := s.MainMenu()
	s.OnProfile()
	if calls != 1 {
		t.Fatalf("Dump called %d times, want 1", calls)
	}
	if s.MainMenu() != before {
		t.Fatalf("MainMenu() changed from %v to %v after OnProfile", before, s.MainMenu())
	}
}

func TestOnProfileNilDumpIsNoop(t *testing.T) {
	s := New(nil)
	s.OnProfile() // must not panic
}
