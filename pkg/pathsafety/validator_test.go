package pathsafety

import "testing"

func TestValidateRelativePath_TraversalCases(t *testing.T) {
	tests := []struct {
		path      string
		shouldErr bool
	}{
		{"RMA1_0315_01_DBZH_20250101T120000Z.BUFR", false},
		{"0000/RMA1_0315_01_DBZH_20250101T120000Z.BUFR", false},
		{"../etc/passwd", true},
		{"/etc/passwd", true},
		{"dir/../file.txt", false},
		{"dir/../../etc/passwd", true},
	}

	for _, tt := range tests {
		err := ValidateRelativePath(tt.path)
		if tt.shouldErr && err == nil {
			t.Errorf("expected error for path: %s", tt.path)
		}
		if !tt.shouldErr && err != nil {
			t.Errorf("unexpected error for path %s: %v", tt.path, err)
		}
	}
}

func TestJoinUnderRoot_RejectsEscape(t *testing.T) {
	if _, err := JoinUnderRoot("/data/raw", "../../etc/passwd"); err == nil {
		t.Fatal("expected error joining an escaping path")
	}
}

func TestJoinUnderRoot_JoinsSafePath(t *testing.T) {
	got, err := JoinUnderRoot("/data/raw", "0000/file.BUFR")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/data/raw/0000/file.BUFR" {
		t.Fatalf("unexpected join result: %s", got)
	}
}
