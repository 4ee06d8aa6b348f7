package gsm

import (
	"fmt"
	"testing"

	"github.com/cellwatch/cell-surveillance/internal/cell"
)

func TestSignalMeasurement_Level(t *testing.T) {
	testCases := []struct {
		asu  int32
		want cell.Level
	}{
		{0, cell.LevelNoneOrUnknown},
		{1, cell.LevelNoneOrUnknown},
		{2, cell.LevelNoneOrUnknown},
		{3, cell.LevelPoor},
		{4, cell.LevelPoor},
		{5, cell.LevelModerate},
		{7, cell.LevelModerate},
		{8, cell.LevelGood},
		{11, cell.LevelGood},
		{12, cell.LevelGreat},
		{31, cell.LevelGreat},
		{98, cell.LevelGreat}, // out of nominal range, still above threshold
		{99, cell.LevelNoneOrUnknown},
		{-1, cell.LevelNoneOrUnknown},
		{Unknown, cell.LevelNoneOrUnknown},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("asu=%d", tc.asu), func(t *testing.T) {
			m := NewFromSignal(tc.asu, 0)
			if got := m.Level(); got != tc.want {
				t.Errorf("Level() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSignalMeasurement_LevelIgnoresOtherFields(t *testing.T) {
	// Bit error rate and timing advance do not affect classification.
	a := NewFromRaw(10, 0, 0)
	b := NewFromRaw(10, 99, 219)
	if a.Level() != b.Level() {
		t.Errorf("Level() differs with ber/ta: %v vs %v", a.Level(), b.Level())
	}
}

func TestSignalMeasurement_Dbm(t *testing.T) {
	testCases := []struct {
		asu  int32
		want int32
	}{
		{0, -113},
		{10, -93},
		{31, -51},
		{99, Unknown},
		{Unknown, Unknown},
		{50, -13}, // no clamping for out-of-range input
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("asu=%d", tc.asu), func(t *testing.T) {
			m := NewFromSignal(tc.asu, 0)
			if got := m.Dbm(); got != tc.want {
				t.Errorf("Dbm() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSignalMeasurement_AsuLevel(t *testing.T) {
	for _, asu := range []int32{0, 5, 31, 99, Unknown, -7} {
		m := NewFromSignal(asu, 0)
		if got := m.AsuLevel(); got != asu {
			t.Errorf("AsuLevel() = %d, want %d", got, asu)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	m := New()
	if m.SignalStrength() != Unknown || m.BitErrorRate() != Unknown || m.TimingAdvance() != Unknown {
		t.Fatalf("New() = %s, want all fields Unknown", m)
	}
	if got := m.Level(); got != cell.LevelNoneOrUnknown {
		t.Errorf("Level() on default = %v, want %v", got, cell.LevelNoneOrUnknown)
	}
	if got := m.Dbm(); got != Unknown {
		t.Errorf("Dbm() on default = %d, want Unknown", got)
	}
}

func TestSignalMeasurement_Accessors(t *testing.T) {
	m := NewFromRaw(17, 3, 42)
	if got := m.SignalStrength(); got != 17 {
		t.Errorf("SignalStrength() = %d, want 17", got)
	}
	if got := m.BitErrorRate(); got != 3 {
		t.Errorf("BitErrorRate() = %d, want 3", got)
	}
	if got := m.TimingAdvance(); got != 42 {
		t.Errorf("TimingAdvance() = %d, want 42", got)
	}
}

func TestNewFromSignal_TimingAdvanceUnknown(t *testing.T) {
	m := NewFromSignal(20, 1)
	if got := m.TimingAdvance(); got != Unknown {
		t.Errorf("TimingAdvance() = %d, want Unknown", got)
	}
}

func TestSignalMeasurement_Equal(t *testing.T) {
	a := NewFromRaw(10, 2, 30)

	t.Run("reflexive", func(t *testing.T) {
		if !a.Equal(a) {
			t.Error("measurement must equal itself")
		}
	})

	t.Run("symmetric and transitive", func(t *testing.T) {
		b := NewFromRaw(10, 2, 30)
		c := NewFromRaw(10, 2, 30)
		if !a.Equal(b) || !b.Equal(a) {
			t.Error("equality must be symmetric")
		}
		if !b.Equal(c) || !a.Equal(c) {
			t.Error("equality must be transitive")
		}
	})

	t.Run("by value", func(t *testing.T) {
		if !a.Equal(*NewFromRaw(10, 2, 30)) {
			t.Error("value form must compare equal")
		}
	})

	t.Run("per-field sensitivity", func(t *testing.T) {
		for _, other := range []*SignalMeasurement{
			NewFromRaw(11, 2, 30),
			NewFromRaw(10, 3, 30),
			NewFromRaw(10, 2, 31),
		} {
			if a.Equal(other) {
				t.Errorf("%s must not equal %s", a, other)
			}
		}
	})

	t.Run("incompatible types", func(t *testing.T) {
		for _, other := range []any{nil, 42, "SignalMeasurement", struct{ ss int32 }{10}, (*SignalMeasurement)(nil)} {
			if a.Equal(other) {
				t.Errorf("measurement must not equal %#v", other)
			}
		}
	})
}

func TestSignalMeasurement_Hash(t *testing.T) {
	a := NewFromRaw(10, 2, 30)
	b := NewFromRaw(10, 2, 30)
	if a.Hash() != b.Hash() {
		t.Error("equal measurements must produce equal hashes")
	}

	c := NewFromRaw(11, 2, 30)
	if a.Hash() == c.Hash() {
		t.Error("distinct measurements should produce distinct hashes")
	}
}

func TestSignalMeasurement_Clone(t *testing.T) {
	orig := NewFromRaw(15, 4, 60)

	clone := orig.Clone()
	if clone == orig {
		t.Fatal("Clone() must return a distinct instance")
	}
	if !clone.Equal(orig) {
		t.Fatalf("Clone() = %s, want %s", clone, orig)
	}

	clone.CopyFrom(NewFromRaw(1, 1, 1))
	if orig.SignalStrength() != 15 || orig.BitErrorRate() != 4 || orig.TimingAdvance() != 60 {
		t.Errorf("mutating the clone changed the original: %s", orig)
	}
}

func TestSignalMeasurement_CopyFrom(t *testing.T) {
	dst := New()
	src := NewFromRaw(8, 1, 12)

	dst.CopyFrom(src)
	if !dst.Equal(src) {
		t.Errorf("CopyFrom: dst = %s, want %s", dst, src)
	}
}

func TestSignalMeasurement_CopyImplementsCellInterface(t *testing.T) {
	var s cell.SignalStrength = NewFromRaw(12, 0, 5)

	c := s.Copy()
	if c.Level() != cell.LevelGreat || c.Dbm() != -89 || c.AsuLevel() != 12 {
		t.Errorf("Copy() lost state: level=%v dbm=%d asu=%d", c.Level(), c.Dbm(), c.AsuLevel())
	}
}

func TestSignalMeasurement_String(t *testing.T) {
	m := NewFromRaw(10, 2, 30)
	want := "SignalMeasurement: ss=10 ber=2 mTa=30"
	if got := m.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
