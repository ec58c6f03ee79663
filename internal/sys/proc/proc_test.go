package proc

import (
	"os"
	"testing"
)

func TestKernelVersion(t *testing.T) {
	version := KernelVersion()
	if version == "" {
		t.Error("KernelVersion returned empty string")
	}
}

func TestListPids(t *testing.T) {
	pids, err := ListPids()
	if err != nil {
		if os.Getenv("GOOS") == "linux" {
			t.Errorf("ListPids returned error on Linux: %v", err)
		}
		return
	}
	if len(pids) == 0 {
		t.Log("ListPids returned 0 pids")
	}
}

func TestBinaryPath(t *testing.T) {
	path, err := BinaryPath(os.Getpid())
	if err != nil {
		t.Fatalf("BinaryPath(self): %v", err)
	}
	if path == "" {
		t.Error("expected non-empty binary path for own pid")
	}
}

func TestCmdline(t *testing.T) {
	args, err := Cmdline(os.Getpid())
	if err != nil {
		t.Fatalf("Cmdline(self): %v", err)
	}
	if len(args) == 0 {
		t.Error("expected non-empty cmdline for own pid")
	}
}

func TestPidNamespaceInode(t *testing.T) {
	inode, err := PidNamespaceInode(os.Getpid())
	if err != nil {
		t.Skipf("pid namespace introspection unavailable: %v", err)
	}
	if inode == 0 {
		t.Error("expected non-zero pid namespace inode")
	}
}
