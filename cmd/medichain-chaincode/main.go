package main

import (
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/rs/zerolog"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/chaincode"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cc, err := contractapi.NewChaincode(chaincode.New())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create medichain chaincode")
	}
	if err := cc.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start medichain chaincode")
	}
}
