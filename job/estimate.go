package job

import "time"

// EstimateProgress guesses progress for engines that report none, assuming
// the job takes assumed in total. It never reaches 100 on its own.
func EstimateProgress(elapsed, assumed time.Duration) float64 {
	if assumed <= 0 || elapsed <= 0 {
		return 0
	}
	return min(elapsed.Seconds()/assumed.Seconds()*100, 99)
}
