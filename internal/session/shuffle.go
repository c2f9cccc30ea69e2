package session

import (
	"math/rand"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// shuffleQuestions permutes the question order in place using the
// Durstenfeld variant of Fisher–Yates. Uniform over permutations; not
// cryptographic, and it doesn't need to be.
func shuffleQuestions(qs []model.Question, rng *rand.Rand) {
	for i := len(qs) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}

// shuffleOptions permutes one question's options in place. Each Option
// carries its correctness tag with it, so the shuffle is a pure relabeling.
func shuffleOptions(opts []model.Option, rng *rand.Rand) {
	for i := len(opts) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		opts[i], opts[j] = opts[j], opts[i]
	}
}
