// internal/storage/models/trade.go
package models

// Trade - запись журнала сделок. Суммы хранятся в базовых единицах (9 знаков).
type Trade struct {
	BaseModel
	Signature        string
	WalletAddress    string
	Mint             string
	Direction        string
	TokenAmount      uint64
	CollateralAmount uint64
	SlippageBps      uint64
	Status           string
	ErrorMessage     string
}
