package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// cmdProgress shows XP and streak for a user
func cmdProgress(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: practice progress <user>")
	}

	p, err := newDaemonClient().progress(args[0])
	if err != nil {
		return err
	}
	printProgress(os.Stdout, p)
	return nil
}

func printProgress(w io.Writer, p *progressView) {
	fmt.Fprintf(w, "User:      %s\n", p.UserID)
	fmt.Fprintf(w, "XP:        %d\n", p.XP)
	fmt.Fprintf(w, "Streak:    %d day(s) %s\n", p.CurrentStreak, renderStreak(p.CurrentStreak, 14))
	if p.LastActiveDate != nil {
		fmt.Fprintf(w, "Last seen: %s\n", p.LastActiveDate.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(w, "Sessions:  %d\n", p.SessionsCount)
}

// cmdActivity lists recent practice activity for a user
func cmdActivity(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: practice activity <user> [limit]")
	}

	limit := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("limit must be a positive number")
		}
		limit = n
	}

	activities, err := newDaemonClient().activities(args[0], limit)
	if err != nil {
		return err
	}

	if len(activities) == 0 {
		fmt.Println("No activity yet. Start practicing!")
		return nil
	}

	for _, a := range activities {
		fmt.Printf("%s  %-9s %-30s %3d answers  +%d xp\n",
			a.CreatedAt.Format("2006-01-02 15:04"), a.Mode, a.Topic, a.QuestionsAnswered, a.XPEarned)
	}
	return nil
}
