package chains

// Defaults is the built-in chain table.
func Defaults() []Chain {
	return []Chain{
		{
			Code: "eth", Name: "Ethereum", ProviderID: "0x1", Explorer: "etherscan.io",
			NativeSymbol: "ETH", NativeDecimals: 18, CoinID: "ethereum", Platform: "ethereum", EVM: true,
			Routers: map[string]string{
				"uniswap_v2": "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
				"uniswap_v3": "0xE592427A0AEce92De3Edee1F18E0157C05861564",
				"sushiswap":  "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F",
			},
		},
		{
			Code: "bsc", Name: "BSC", ProviderID: "0x38", Explorer: "bscscan.com",
			NativeSymbol: "BNB", NativeDecimals: 18, CoinID: "binancecoin", Platform: "binance-smart-chain", EVM: true,
			Routers: map[string]string{
				"pancakeswap_v2": "0x10ED43C718714eb63d5aA57B78B54704E256024E",
				"pancakeswap_v3": "0x13f4EA83D0bd40E75C8222255bc855a974568Dd4",
			},
		},
		{
			Code: "polygon", Name: "Polygon", ProviderID: "0x89", Explorer: "polygonscan.com",
			NativeSymbol: "MATIC", NativeDecimals: 18, CoinID: "matic-network", Platform: "polygon-pos", EVM: true,
		},
		{
			Code: "arb", Name: "Arbitrum", ProviderID: "0xa4b1", Explorer: "arbiscan.io",
			NativeSymbol: "ETH", NativeDecimals: 18, CoinID: "ethereum", Platform: "arbitrum-one", EVM: true,
			Routers: map[string]string{
				"uniswap_v3": "0xE592427A0AEce92De3Edee1F18E0157C05861564",
				"sushiswap":  "0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506",
			},
		},
		{
			Code: "base", Name: "Base", ProviderID: "0x2105", Explorer: "basescan.org",
			NativeSymbol: "ETH", NativeDecimals: 18, CoinID: "ethereum", Platform: "base", EVM: true,
			Routers: map[string]string{
				"uniswap_v3": "0x2626664c2603336E57B271c5C0b26F421741e481",
			},
		},
		{
			Code: "op", Name: "Optimism", ProviderID: "0xa", Explorer: "optimistic.etherscan.io",
			NativeSymbol: "ETH", NativeDecimals: 18, CoinID: "ethereum", Platform: "optimistic-ethereum", EVM: true,
		},
		{
			Code: "avax", Name: "Avalanche", ProviderID: "0xa86a", Explorer: "snowtrace.io",
			NativeSymbol: "AVAX", NativeDecimals: 18, CoinID: "avalanche-2", Platform: "avalanche", EVM: true,
		},
		{
			Code: "sol", Name: "Solana", ProviderID: "solana", Explorer: "solscan.io",
			NativeSymbol: "SOL", NativeDecimals: 9, CoinID: "solana", Platform: "solana",
			Routers: map[string]string{
				"jupiter": "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4",
				"raydium": "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
			},
		},
	}
}
