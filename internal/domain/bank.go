package domain

import "fmt"

// Validate checks the structural rules every question bank must satisfy.
func (b QuestionBank) Validate() error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidBank)
	}
	for i, q := range b.Questions {
		if q == "" {
			return fmt.Errorf("%w: question %d is empty", ErrInvalidBank, i+1)
		}
	}
	if len(b.Answers) == 0 {
		return fmt.Errorf("%w: no answers", ErrInvalidBank)
	}
	seen := make(map[string]struct{}, len(b.Answers))
	for _, a := range b.Answers {
		token := NormalizeToken(a.Token)
		if token == "" {
			return fmt.Errorf("%w: empty answer token", ErrInvalidBank)
		}
		if _, dup := seen[token]; dup {
			return fmt.Errorf("%w: duplicate answer token %q", ErrInvalidBank, token)
		}
		seen[token] = struct{}{}
	}
	if len(b.Results) == 0 {
		return fmt.Errorf("%w: no result ranges", ErrInvalidBank)
	}
	for i, r := range b.Results {
		if r.Low > r.High {
			return fmt.Errorf("%w: result range %d has low %d above high %d", ErrInvalidBank, i+1, r.Low, r.High)
		}
	}
	return nil
}

// Uncovered lists the reachable totals no result range matches, in ascending order.
func (b QuestionBank) Uncovered() []int {
	reachable := map[int]struct{}{0: {}}
	for range b.Questions {
		next := make(map[int]struct{}, len(reachable)*len(b.Answers))
		for sum := range reachable {
			for _, a := range b.Answers {
				next[sum+a.Points] = struct{}{}
			}
		}
		reachable = next
	}
	lo, hi := b.ScoreBounds()
	var missing []int
	for score := lo; score <= hi; score++ {
		if _, ok := reachable[score]; !ok {
			continue
		}
		if _, ok := b.Classify(score); !ok {
			missing = append(missing, score)
		}
	}
	return missing
}
