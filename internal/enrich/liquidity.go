package enrich

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"rugwatch/internal/discovery"
	"rugwatch/internal/domain"
	"rugwatch/internal/solana"
)

// curveDiscriminator identifies a launch-program bonding curve account:
// the first 8 bytes of sha256("account:BondingCurve").
var curveDiscriminator = []byte{23, 183, 248, 55, 96, 216, 172, 96}

// Bonding curve account layout: discriminator(8) + five u64 reserve/supply
// fields + complete flag.
const curveAccountMinSize = 8 + 5*8 + 1

// curveAccount is the decoded launch-program bonding curve state.
type curveAccount struct {
	virtualTokenReserves uint64
	virtualSolReserves   uint64
	realTokenReserves    uint64
	realSolReserves      uint64
	tokenTotalSupply     uint64
	complete             bool
}

func parseCurveAccount(data []byte) (*curveAccount, error) {
	if len(data) < curveAccountMinSize {
		return nil, fmt.Errorf("curve data too short: %d", len(data))
	}
	for i, b := range curveDiscriminator {
		if data[i] != b {
			return nil, fmt.Errorf("not a bonding curve account")
		}
	}
	return &curveAccount{
		virtualTokenReserves: binary.LittleEndian.Uint64(data[8:16]),
		virtualSolReserves:   binary.LittleEndian.Uint64(data[16:24]),
		realTokenReserves:    binary.LittleEndian.Uint64(data[24:32]),
		realSolReserves:      binary.LittleEndian.Uint64(data[32:40]),
		tokenTotalSupply:     binary.LittleEndian.Uint64(data[40:48]),
		complete:             data[48] != 0,
	}, nil
}

// DeriveBondingCurve derives the launch program's curve PDA for a mint,
// seeds ["bonding-curve", mint].
func DeriveBondingCurve(mint, programID string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	if len(mintBytes) != 32 {
		return "", fmt.Errorf("mint is %d bytes, want 32", len(mintBytes))
	}
	return solana.FindProgramAddress([][]byte{[]byte("bonding-curve"), mintBytes}, programID)
}

// DeriveAssociatedTokenAccount derives the canonical token account of a
// wallet for a mint, seeds [owner, token program, mint] under the
// associated token program.
func DeriveAssociatedTokenAccount(owner, mint string) (string, error) {
	ownerBytes, err := base58.Decode(owner)
	if err != nil {
		return "", fmt.Errorf("decode owner: %w", err)
	}
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	programBytes, err := base58.Decode(discovery.SPLToken)
	if err != nil {
		return "", fmt.Errorf("decode token program: %w", err)
	}
	seeds := [][]byte{ownerBytes, programBytes, mintBytes}
	return solana.FindProgramAddress(seeds, discovery.AssociatedToken)
}

// probeLiquidity resolves the liquidity state for a creation event.
//
// The probe reads the account at the event's curve address (derived from the
// mint when the parse did not carry one) and branches on what lives there:
//
//   - nothing: no liquidity account yet, unresolved
//   - a bonding curve that is not complete: liquidity is escrowed on the
//     curve and no LP token exists yet, unresolved
//   - a completed bonding curve: the pool graduated and the migration burns
//     the LP as part of it, burned
//   - an SPL mint: treated as the pool's LP mint; burned iff the supply not
//     parked at the burn address is at or below the threshold share
func (e *Enricher) probeLiquidity(ctx context.Context, event *domain.CreationEvent) (*domain.LiquidityState, error) {
	curveAddr := event.BondingCurve
	if curveAddr == "" {
		derived, err := DeriveBondingCurve(event.Mint, e.launchProgram)
		if err != nil {
			return nil, fmt.Errorf("derive liquidity account: %w", err)
		}
		curveAddr = derived
	}

	info, err := e.rpc.GetAccountInfo(ctx, curveAddr)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("no liquidity account at %s", curveAddr)
	}

	data, err := decodeAccountData(info.Data)
	if err != nil {
		return nil, err
	}

	switch info.Owner {
	case e.launchProgram:
		curve, err := parseCurveAccount(data)
		if err != nil {
			return nil, err
		}
		if !curve.complete {
			return nil, fmt.Errorf("no liquidity pool yet, token still on bonding curve")
		}
		// Graduation migrates liquidity out and burns the LP tokens.
		return &domain.LiquidityState{LPBurned: true}, nil

	case discovery.SPLToken:
		lp, err := ParseMintAccount(data)
		if err != nil {
			return nil, err
		}
		burned, err := e.burnedBalance(ctx, curveAddr)
		if err != nil {
			return nil, err
		}
		return &domain.LiquidityState{
			LPMint:   curveAddr,
			LPSupply: lp.Supply,
			LPBurned: lpBurned(lp.Supply, burned, e.burnThreshold),
		}, nil
	}

	return nil, fmt.Errorf("unexpected liquidity account owner %s", info.Owner)
}

// burnedBalance reads the LP balance parked at the burn address. A missing
// token account means nothing was sent there.
func (e *Enricher) burnedBalance(ctx context.Context, lpMint string) (uint64, error) {
	ata, err := DeriveAssociatedTokenAccount(e.burnAddress, lpMint)
	if err != nil {
		return 0, fmt.Errorf("derive burn account: %w", err)
	}

	info, err := e.rpc.GetAccountInfo(ctx, ata)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, nil
	}

	data, err := decodeAccountData(info.Data)
	if err != nil {
		return 0, err
	}
	return parseTokenAmount(data)
}

// lpBurned applies the burn threshold: a pool counts as burned when its
// supply is gone entirely or the share still circulating (not parked at the
// burn address) is at or below the threshold.
func lpBurned(total, burned uint64, threshold float64) bool {
	if total == 0 {
		return true
	}
	if burned > total {
		burned = total
	}
	circulating := float64(total-burned) / float64(total)
	return circulating <= threshold
}
