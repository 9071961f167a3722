package calc

import "testing"

func TestAdd(t *testing.T) {
	if got := Add(2, 2); got != 4 {
		t.Errorf("Add(2, 2) = %d, want 4", got)
	}
}

func TestAbs(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative", -3, 3},
		{"min", -7, 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Abs(tc.in); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDivide(t *testing.T) {
	if _, err := Divide(1, 0); err != nil {
		t.Fatalf("Divide(1, 0): %v", err)
	}
}

func TestModulo(t *testing.T) {
	t.Skip("TODO: implement Modulo")
}

func TestSlowPath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
}
