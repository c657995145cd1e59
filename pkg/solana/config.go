package solana

type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)
