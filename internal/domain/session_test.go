package domain

import "testing"

func TestSessionStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status SessionStatus
		want   bool
	}{
		{SessionStatusPending, false},
		{SessionStatusRunning, false},
		{SessionStatusCompleted, true},
		{SessionStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStringArrayRoundTrip(t *testing.T) {
	arr := StringArray{"Salesforce", "HubSpot"}

	value, err := arr.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned StringArray
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(scanned) != 2 || scanned[0] != "Salesforce" || scanned[1] != "HubSpot" {
		t.Errorf("round trip produced %v", scanned)
	}

	// Drivers may hand back string instead of []byte
	var fromString StringArray
	if err := fromString.Scan(`["Zoho"]`); err != nil {
		t.Fatalf("Scan from string failed: %v", err)
	}
	if len(fromString) != 1 || fromString[0] != "Zoho" {
		t.Errorf("scan from string produced %v", fromString)
	}

	var fromNil StringArray
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan from nil failed: %v", err)
	}
	if len(fromNil) != 0 {
		t.Errorf("expected empty array, got %v", fromNil)
	}
}
