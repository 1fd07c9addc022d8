package eval

import "github.com/grailchess/grail/internal/board"

// SEE performs a static exchange evaluation of m, returning the expected
// material gain (centipawns) for the side making the move once the full
// capture sequence on the destination square has played out.
func SEE(pos *board.Position, m board.Move) int {
	from := m.From()
	to := m.To()

	attacker := pos.PieceAt(from)
	if attacker == board.NoPiece {
		return 0
	}

	var captured int
	if m.IsEnPassant() {
		captured = PawnValue
	} else {
		victim := pos.PieceAt(to)
		if victim == board.NoPiece {
			return 0
		}
		captured = pieceValue[victim.Type()]
	}
	if m.IsPromotion() {
		captured += pieceValue[m.Promotion()] - PawnValue
	}

	return seeSwap(pos, to, from, attacker, captured)
}

// SEEGE ("SEE greater-or-equal") reports whether m's static exchange
// value meets or exceeds threshold, the form the search's pruning rules
// consume (§4.F SEE pruning, §4.E capture ordering).
func SEEGE(pos *board.Position, m board.Move, threshold int) bool {
	return SEE(pos, m) >= threshold
}

// seeSwap runs the classic "swap off" algorithm: alternately finds the
// least valuable attacker of target and negamaxes the resulting gain
// sequence.
func seeSwap(pos *board.Position, target, excludeFrom board.Square, firstAttacker board.Piece, initialGain int) int {
	var gain [32]int
	d := 0
	gain[d] = initialGain

	occupied := pos.AllOccupied &^ board.SquareBB(excludeFrom)
	attackerValue := pieceValue[firstAttacker.Type()]
	side := firstAttacker.Color().Other()

	for {
		d++
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		attackerSq, attackerPiece := leastValuableAttacker(pos, target, side, occupied)
		if attackerSq == board.NoSquare {
			break
		}

		occupied &^= board.SquareBB(attackerSq)
		attackerValue = pieceValue[attackerPiece.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker finds the cheapest piece of side attacking target
// given occupied (which x-ray attackers re-derive from as pieces are
// removed from the exchange).
func leastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occupied board.Bitboard) (board.Square, board.Piece) {
	pawnAttacks := board.PawnAttacks(target, side.Other())
	if a := pos.Pieces[side][board.Pawn] & pawnAttacks & occupied; a != 0 {
		return a.LSB(), board.NewPiece(board.Pawn, side)
	}
	if a := pos.Pieces[side][board.Knight] & board.KnightAttacks(target) & occupied; a != 0 {
		return a.LSB(), board.NewPiece(board.Knight, side)
	}
	bishopAttacks := board.BishopAttacks(target, occupied)
	if a := pos.Pieces[side][board.Bishop] & bishopAttacks & occupied; a != 0 {
		return a.LSB(), board.NewPiece(board.Bishop, side)
	}
	rookAttacks := board.RookAttacks(target, occupied)
	if a := pos.Pieces[side][board.Rook] & rookAttacks & occupied; a != 0 {
		return a.LSB(), board.NewPiece(board.Rook, side)
	}
	if a := pos.Pieces[side][board.Queen] & (bishopAttacks | rookAttacks) & occupied; a != 0 {
		return a.LSB(), board.NewPiece(board.Queen, side)
	}
	if a := pos.Pieces[side][board.King] & board.KingAttacks(target) & occupied; a != 0 {
		return a.LSB(), board.NewPiece(board.King, side)
	}
	return board.NoSquare, board.NoPiece
}
