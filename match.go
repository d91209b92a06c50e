package lirc

// matchCode reports whether a and b name the same button on r. Ignored bits
// never count, and the toggle bit may have either polarity.
func (r *Remote) matchCode(a, b Code) bool {
	return r.IgnoreMask|a == r.IgnoreMask|b ||
		r.IgnoreMask|a == r.IgnoreMask|(b^r.ToggleBitMask)
}

// dynCodesName returns the name reported for dynamic codes.
func (r *Remote) dynCodesName() string {
	if r.DynCodesName == "" {
		return "unknown"
	}
	return r.DynCodesName
}

// getCode looks up the button matching the normalized fields. It advances
// the sequence cursors of every button it scans and returns the matched
// button together with the toggle bits of the received code.
func (r *Remote) getCode(pre, code, post Code, repeatFlag, dyncodes bool) (*Button, Code) {
	var preMask, postMask Code
	if r.hasToggleBitMask() {
		preMask = shr(r.ToggleBitMask, r.Bits+r.PostDataBits)
		postMask = r.ToggleBitMask & genMask(r.PostDataBits)
	}
	if r.hasIgnoreMask() {
		preMask |= shr(r.IgnoreMask, r.Bits+r.PostDataBits)
		postMask |= r.IgnoreMask & genMask(r.PostDataBits)
	}
	if r.hasToggleMask() && r.toggleMaskState%2 == 1 {
		post ^= r.ToggleMask & genMask(r.PostDataBits)
		code ^= shr(r.ToggleMask, r.PostDataBits) & genMask(r.Bits)
		pre ^= shr(r.ToggleMask, r.PostDataBits+r.Bits) & genMask(r.PreDataBits)
	}
	if r.hasPre() && pre|preMask != r.PreData|preMask {
		return nil, 0
	}
	if r.hasPost() && post|postMask != r.PostData|postMask {
		return nil, 0
	}

	all := r.genCode(pre, code, post)
	if repeatFlag && r.hasRepeatMask() {
		all ^= r.RepeatMask
	}
	toggleBitMaskState := all & r.ToggleBitMask

	var found *Button
	foundCode, haveCode := false, false
	for _, b := range r.Codes {
		next := r.genCode(r.PreData, b.chain(b.current), r.PostData)
		if r.matchCode(next, all) ||
			repeatFlag && r.hasRepeatMask() && r.matchCode(next, all^r.RepeatMask) {
			foundCode = true
			if b.HasSequence() {
				b.current = (b.current + 1) % b.chainLen()
			}
			if !haveCode {
				found = b
				if b.current == 0 {
					haveCode = true
				}
			}
			continue
		}

		if !b.HasSequence() || b.current == 0 {
			b.current = 0
			continue
		}
		if cur, ok := r.resumeSequence(b, all); ok {
			b.current = cur
			foundCode = true
			if !haveCode {
				found = b
			}
		} else {
			b.current = 0
		}
	}

	if !foundCode && dyncodes {
		if r.dyncodes[r.dyncode].Code != code {
			r.dyncode = (r.dyncode + 1) % len(r.dyncodes)
		}
		r.dyncodes[r.dyncode].Code = code
		r.dyncodes[r.dyncode].Name = r.dynCodesName()
		found = &r.dyncodes[r.dyncode]
		foundCode = true
	}

	if foundCode && found != nil && r.hasToggleMask() {
		if r.toggleMaskState%2 == 0 {
			r.toggleCode = found
		} else {
			match := found == r.toggleCode
			r.toggleCode = nil
			if !match {
				return nil, 0
			}
		}
	}
	return found, toggleBitMaskState
}

// resumeSequence finds the longest prefix of b's chain that ends at the
// received code all, given that the codes received so far match the chain
// up to b.current. It returns the cursor following that prefix.
func (r *Remote) resumeSequence(b *Button, all Code) (int, bool) {
	for start := 1; start <= b.current; start++ {
		prev, next := 0, start
		matched := true
		for next != b.current {
			if b.chain(prev) != b.chain(next) {
				matched = false
				break
			}
			prev++
			next++
		}
		if !matched {
			continue
		}
		if r.matchCode(r.genCode(r.PreData, b.chain(prev), r.PostData), all) {
			return (prev + 1) % b.chainLen(), true
		}
	}
	return 0, false
}
