package state

var (
	rolePrefix         = []byte("access/role/")
	verificationPrefix = []byte("access/verification/")
	rateWindowPrefix   = []byte("ratelimit/window/")
	productPrefix      = []byte("registry/product/")
	productSeqKey      = []byte("registry/product-seq")
	transfersPrefix    = []byte("registry/transfers/")
	paymentPrefix      = []byte("payments/payment/")
	paymentSeqKey      = []byte("payments/payment-seq")
	pausePrefix        = []byte("params/pause/")
	platformFeeKey     = []byte("params/platform-fee-bps")
	platformWalletKey  = []byte("params/platform-wallet")
	multisigConfigKey  = []byte("multisig/config")
)
