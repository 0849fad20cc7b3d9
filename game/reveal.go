package game

// ObscureGlyph replaces every hidden letter of an in-progress line.
const ObscureGlyph = '∗'

// isPoemLetter reports whether r counts as a letter for obfuscation.
// Only ASCII and Cyrillic letters are covered; punctuation, digits and
// whitespace always pass through untouched.
func isPoemLetter(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я':
		return true
	case r == 'ё', r == 'Ё':
		return true
	}
	return false
}

// Obscure computes the partially hidden form of a poem line.
//
// When showFull is set (the line is the most recent one and the host
// allows showing it in full) the line is returned unchanged. Otherwise
// every letter becomes ObscureGlyph. With revealLastWord set, trailing
// letters of the line's last word are restored, capped at
// revealAtMostPercent of the line's total letter count.
func Obscure(line string, showFull, revealLastWord bool, revealAtMostPercent int) string {
	if showFull {
		return line
	}

	runes := []rune(line)
	masked := make([]rune, len(runes))
	letters := 0
	for i, r := range runes {
		if isPoemLetter(r) {
			masked[i] = ObscureGlyph
			letters++
		} else {
			masked[i] = r
		}
	}

	if !revealLastWord || letters == 0 {
		return string(masked)
	}

	// Locate the last contiguous run of letters.
	end := len(runes) - 1
	for end >= 0 && !isPoemLetter(runes[end]) {
		end--
	}
	start := end
	for start > 0 && isPoemLetter(runes[start-1]) {
		start--
	}

	maxReveal := revealAtMostPercent * letters / 100
	boundary := start
	if wordLen := end - start + 1; wordLen > maxReveal {
		boundary = end + 1 - maxReveal
	}

	return string(masked[:boundary]) + string(runes[boundary:])
}
