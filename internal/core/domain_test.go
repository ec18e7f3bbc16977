package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestTradeRecordDecode(t *testing.T) {
	body := `[
		{"country1":"Italy","country2":"France","value":1200.5,"type":"Export"},
		{"country2":"Spain","value":null},
		{"country2":"Germany"}
	]`
	var records []TradeRecord
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Country2 != "France" || records[0].Value.String() != "1200.5" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if !records[1].Value.IsZero() || !records[2].Value.IsZero() {
		t.Fatalf("null and missing values must decode as zero")
	}
}

func TestTradeQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   TradeQuery
		wantErr bool
		missing string
	}{
		{"complete", TradeQuery{Country: "italy", TradeType: "export", Category: "01"}, false, ""},
		{"missing country", TradeQuery{TradeType: "export", Category: "01"}, true, "country"},
		{"blank category", TradeQuery{Country: "italy", TradeType: "export", Category: "  "}, true, "category"},
		{"all missing", TradeQuery{}, true, "country, tradeType, category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrMissingParams) {
					t.Fatalf("expected ErrMissingParams, got %v", err)
				}
				if !strings.HasSuffix(err.Error(), tt.missing) {
					t.Fatalf("error %q should list %q", err, tt.missing)
				}
			}
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := (Category{Name: "live animals", PrettyName: "Live Animals"}).Label(); got != "Live Animals" {
		t.Fatalf("Label() = %q", got)
	}
	if got := (Category{Name: "cereals"}).Label(); got != "cereals" {
		t.Fatalf("Label() = %q", got)
	}
}
