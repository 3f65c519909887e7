// Package ledger derives account balances from first principles: an
// account's balance is always its initial balance plus the net effect of
// every transaction that references it. Balances are never accumulated
// incrementally, so recomputation is idempotent and safe to rerun after
// any mutation.
package ledger

import "quid/internal/models"

// Balances computes the balance of every account in accounts from its
// initial balance and the given transaction set.
//
// Effect rules:
//   - expense: subtracts Amount (the user's share if split) from the
//     source account
//   - income: adds Amount to the destination account
//   - transfer: subtracts Amount from the source account and adds it to
//     the destination account
//   - split expense settled into a tracked account: adds the friend's
//     share to the settlement account as an income-like effect
//
// Transactions referencing accounts not present in accounts are skipped;
// a dangling reference is not an error.
func Balances(accounts []models.Account, transactions []models.Transaction) map[string]int64 {
	balances := make(map[string]int64, len(accounts))
	for i := range accounts {
		balances[accounts[i].ID] = accounts[i].InitialBalance
	}

	for i := range transactions {
		t := &transactions[i]
		switch t.Type {
		case models.TransactionTypeExpense:
			if _, ok := balances[t.AccountID]; ok {
				balances[t.AccountID] -= t.Amount
			}
			if t.IsSplit && t.SplitSettleAccountID != nil {
				if _, ok := balances[*t.SplitSettleAccountID]; ok {
					balances[*t.SplitSettleAccountID] += t.SplitFriendAmount
				}
			}
		case models.TransactionTypeIncome:
			if _, ok := balances[t.AccountID]; ok {
				balances[t.AccountID] += t.Amount
			}
		case models.TransactionTypeTransfer:
			if _, ok := balances[t.AccountID]; ok {
				balances[t.AccountID] -= t.Amount
			}
			if t.ToAccountID != nil {
				if _, ok := balances[*t.ToAccountID]; ok {
					balances[*t.ToAccountID] += t.Amount
				}
			}
		}
	}

	return balances
}

// Recalculate returns accounts with Balance replaced by the freshly
// derived value. The input slice is not modified.
func Recalculate(accounts []models.Account, transactions []models.Transaction) []models.Account {
	balances := Balances(accounts, transactions)

	out := make([]models.Account, len(accounts))
	copy(out, accounts)
	for i := range out {
		out[i].Balance = balances[out[i].ID]
	}
	return out
}
