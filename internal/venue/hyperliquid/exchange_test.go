package hyperliquid

import (
	"testing"

	"github.com/andrewqian/spreadbot/internal/domain"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    domain.LegOutcome
		wantErr bool
	}{
		{
			name: "filled",
			raw:  `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"0.23","avgPx":"423.2","oid":77738308}}]}}}`,
			want: domain.LegFilled,
		},
		{
			name: "venue error status",
			raw:  `{"status":"ok","response":{"type":"order","data":{"statuses":[{"error":"Insufficient margin to place order."}]}}}`,
			want: domain.LegRejected,
		},
		{
			name: "request rejected outright",
			raw:  `{"status":"err","response":{"type":"error"}}`,
			want: domain.LegRejected,
		},
		{
			name: "resting is ambiguous for IOC",
			raw:  `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":123}}]}}}`,
			want: domain.LegUnknown,
		},
		{
			name:    "unparseable body",
			raw:     `<html>502 bad gateway</html>`,
			want:    domain.LegUnknown,
			wantErr: true,
		},
		{
			name:    "wrong status count",
			raw:     `{"status":"ok","response":{"type":"order","data":{"statuses":[]}}}`,
			want:    domain.LegUnknown,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := classifyResponse([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if res.Outcome != tt.want {
				t.Fatalf("Outcome = %s, want %s", res.Outcome, tt.want)
			}
		})
	}
}

func TestClassifyResponse_FillDetails(t *testing.T) {
	raw := `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"0.23","avgPx":"423.2","oid":1}}]}}}`
	res, err := classifyResponse([]byte(raw))
	if err != nil {
		t.Fatalf("classifyResponse: %v", err)
	}
	if res.FilledPrice != 423.2 || res.FilledQty != 0.23 {
		t.Fatalf("fill = %v @ %v, want 0.23 @ 423.2", res.FilledQty, res.FilledPrice)
	}
}

func TestCloidFromClientID(t *testing.T) {
	got := cloidFromClientID("0193cba2-7f0d-7b31-a6ab-0c1d2e3f4a5b")
	want := "0x0193cba27f0d7b31a6ab0c1d2e3f4a5b"
	if got != want {
		t.Fatalf("cloid = %q, want %q", got, want)
	}
	if got := cloidFromClientID("short"); got != "" {
		t.Fatalf("malformed client id produced cloid %q", got)
	}
}

func TestSplitSignature(t *testing.T) {
	r := "aa11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
	s := "bb11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
	got, err := splitSignature("0x" + r + s + "1c")
	if err != nil {
		t.Fatalf("splitSignature: %v", err)
	}
	if got.R != "0x"+r || got.S != "0x"+s || got.V != 28 {
		t.Fatalf("split = %+v", got)
	}

	if _, err := splitSignature("0xdeadbeef"); err == nil {
		t.Fatal("splitSignature accepted a short signature")
	}
}
