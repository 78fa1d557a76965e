package discovery

// Program and account IDs involved in launch detection.
const (
	// PumpFun is the pump.fun launch program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	// SPLToken is the SPL Token program ID, owner of mint and token accounts.
	SPLToken = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

	// AssociatedToken is the Associated Token Account program ID.
	AssociatedToken = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"

	// Incinerator is the conventional unrecoverable burn address.
	Incinerator = "1nc1nerator11111111111111111111111111111111"
)
