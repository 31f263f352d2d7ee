package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/weboryskills/practice/internal/config"
)

// cmdStart starts the daemon in the background
func cmdStart() error {
	client := newDaemonClient()
	if client.isRunning() {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("setup practice directory: %w", err)
	}

	daemonPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(daemonPath)
	cmd.Dir = dir
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if client.isRunning() {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", client.baseURL)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'practice logs')")
}

// cmdStop stops the daemon
func cmdStop() error {
	client := newDaemonClient()
	if !client.isRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !client.isRunning() {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows daemon status
func cmdStatus() error {
	client := newDaemonClient()
	if !client.isRunning() {
		fmt.Println("Status: stopped")
		return nil
	}
	fmt.Println("Status:  running")
	fmt.Printf("Address: %s\n", client.baseURL)
	return nil
}

// cmdLogs prints the tail of the daemon log
func cmdLogs() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	logPath := filepath.Join(dir, "logs", "practiced.log")

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// last ~4KB
	info, _ := file.Stat()
	offset := info.Size() - 4096
	if offset < 0 {
		offset = 0
	}
	_, _ = file.Seek(offset, 0)

	reader := bufio.NewReader(file)
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}

// findDaemonBinary locates the practiced binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("practiced"); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "practiced")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/usr/local/bin/practiced", "./practiced"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("practiced binary not found (build with 'go build ./cmd/practiced')")
}
