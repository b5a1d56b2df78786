package cpu

// doAlu performs an 8XYn operation and returns the result, and the vf flag
// when the operation produces one.
func doAlu(op CodeOp, vx, vy uint8) (output uint8, flag uint8, flagged bool) {
	switch op {
	case OP_LD_REG:
		output = vy
	case OP_OR:
		output = vx | vy
	case OP_AND:
		output = vx & vy
	case OP_XOR:
		output = vx ^ vy
	case OP_ADD_REG:
		sum := uint16(vx) + uint16(vy)
		output = uint8(sum)
		flag, flagged = bit(sum > 0xff), true
	case OP_SUB:
		output = vx - vy
		flag, flagged = bit(vx >= vy), true
	case OP_SHR:
		output = vx >> 1
		flag, flagged = vx&1, true
	case OP_SUBN:
		output = vy - vx
		flag, flagged = bit(vy >= vx), true
	case OP_SHL:
		output = vx << 1
		flag, flagged = bit(vx&0x80 != 0), true
	}

	return
}

func bit(cond bool) uint8 {
	if cond {
		return 1
	}
	return 0
}
