package domain

import (
	"errors"
	"testing"
)

func TestTransactionKindSign(t *testing.T) {
	tests := []struct {
		kind TransactionKind
		want int64
	}{
		{KindAward, 1},
		{KindTransferSent, -1},
		{KindTransferReceived, 1},
		{KindWellnessReward, 1},
		{KindAdjustment, 1},
		{KindStorePurchase, -1},
		{KindWagerBet, -1},
		{KindWagerWin, 1},
		{KindWagerRefund, 1},
		{KindJackpotContribution, -1},
		{KindJackpotWin, 1},
		{KindDailyBonus, 1},
		{KindBulkImport, 1},
		{KindAllotmentDeposit, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := tt.kind.Sign()
			if err != nil {
				t.Fatalf("expected no error for kind %s, got %v", tt.kind, err)
			}
			if got != tt.want {
				t.Fatalf("expected sign=%d for kind %s, got %d", tt.want, tt.kind, got)
			}
		})
	}
}

func TestTransactionKindSignRejectsUnknownKind(t *testing.T) {
	sign, err := TransactionKind("mystery_credit").Sign()
	if !errors.Is(err, ErrUnknownTransactionKind) {
		t.Fatalf("expected ErrUnknownTransactionKind, got %v", err)
	}
	if sign != 0 {
		t.Fatalf("expected zero sign for unknown kind, got %d", sign)
	}
}

func TestTransactionKindValid(t *testing.T) {
	if !KindAward.Valid() {
		t.Fatal("expected award to be a valid kind")
	}
	if TransactionKind("").Valid() {
		t.Fatal("expected empty kind to be invalid")
	}
}
