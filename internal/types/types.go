package types

type Side string

type OrderKind string

type OrderStatus string

type PositionStatus string

type WalletType string

type AssetClass string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	OrderKindMarket  OrderKind = "market"
	OrderKindPending OrderKind = "pending"
)

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusCanceled OrderStatus = "canceled"
)

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

const (
	WalletTypeReal WalletType = "real"
	WalletTypeDemo WalletType = "demo"
)

const (
	AssetClassForex  AssetClass = "forex"
	AssetClassMetal  AssetClass = "metal"
	AssetClassCrypto AssetClass = "crypto"
)

// Deal direction codes as stored on deal rows.
const (
	DealDirectionOpen  = 0
	DealDirectionClose = 1
)

// Deal reason codes. Only client-requested fills are produced here.
const (
	DealReasonClient = 2
)
