package fsutils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateDir(t *testing.T) {
	tempDir := t.TempDir()

	// Test 1: Create a new directory
	newDirPath := filepath.Join(tempDir, "new_dir")
	err := CreateDir(newDirPath)
	if err != nil {
		t.Fatalf("Test 1 failed: CreateDir(%q) returned error: %v", newDirPath, err)
	}
	if _, err := os.Stat(newDirPath); os.IsNotExist(err) {
		t.Fatalf("Test 1 failed: Directory %q was not created", newDirPath)
	}

	// Test 2: Create a directory that already exists
	err = CreateDir(newDirPath)
	if err != nil {
		t.Fatalf("Test 2 failed: CreateDir(%q) on existing dir returned error: %v", newDirPath, err)
	}

	// Test 3: Create nested directories
	nestedDirPath := filepath.Join(tempDir, "parent", "child")
	err = CreateDir(nestedDirPath)
	if err != nil {
		t.Fatalf("Test 3 failed: CreateDir(%q) for nested dirs returned error: %v", nestedDirPath, err)
	}
	if _, err := os.Stat(nestedDirPath); os.IsNotExist(err) {
		t.Fatalf("Test 3 failed: Nested directory %q was not created", nestedDirPath)
	}
}

func TestWriteToFile(t *testing.T) {
	tempDir := t.TempDir()

	// Test 1: Write to a new file
	filePath1 := filepath.Join(tempDir, "toolbox.xml")
	content1 := []byte(`<xml id="toolbox"/>`)
	if err := WriteToFile(filePath1, content1); err != nil {
		t.Fatalf("Test 1 failed: WriteToFile(%q) returned error: %v", filePath1, err)
	}
	readContent1, err := os.ReadFile(filePath1)
	if err != nil {
		t.Fatalf("Test 1 failed: Error reading back file %q: %v", filePath1, err)
	}
	if string(readContent1) != string(content1) {
		t.Fatalf("Test 1 failed: Read content %q does not match written content %q", readContent1, content1)
	}

	// Test 2: Overwrite an existing file
	content2 := []byte("Overwritten content")
	if err := WriteToFile(filePath1, content2); err != nil {
		t.Fatalf("Test 2 failed: WriteToFile(%q) overwrite returned error: %v", filePath1, err)
	}
	readContent2, _ := os.ReadFile(filePath1)
	if string(readContent2) != string(content2) {
		t.Fatalf("Test 2 failed: Read content %q does not match overwritten content %q", readContent2, content2)
	}

	// Test 3: No temporary files are left behind
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Test 3 failed: ReadDir returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Test 3 failed: expected only the target file, found %d entries", len(entries))
	}

	// Test 4: Write to a file in a non-existent directory fails
	filePath4 := filepath.Join(tempDir, "non_existent_dir", "testfile.txt")
	if err := WriteToFile(filePath4, []byte("Test")); err == nil {
		t.Fatalf("Test 4 failed: WriteToFile(%q) succeeded, expected error for non-existent directory", filePath4)
	}
}

func TestReadFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "in.txt")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil || string(got) != "data" {
		t.Errorf("ReadFile(%q) = %q, %v; want \"data\", nil", path, got, err)
	}
	if _, err := ReadFile(filepath.Join(tempDir, "missing")); !os.IsNotExist(err) {
		t.Errorf("ReadFile(missing) error = %v, want not-exist", err)
	}
}

func TestFileExists(t *testing.T) {
	tempDir := t.TempDir()

	// Test 1: File that exists
	filePath := filepath.Join(tempDir, "exists.txt")
	file, err := os.Create(filePath)
	if err != nil {
		t.Fatalf("Test 1 setup failed: Could not create temp file %q: %v", filePath, err)
	}
	file.Close()

	if !FileExists(filePath) {
		t.Errorf("Test 1 failed: FileExists(%q) returned false, want true", filePath)
	}

	// Test 2: File that does not exist
	nonExistentPath := filepath.Join(tempDir, "does_not_exist.txt")
	if FileExists(nonExistentPath) {
		t.Errorf("Test 2 failed: FileExists(%q) returned true, want false", nonExistentPath)
	}

	// Test 3: Path is a directory, not a file
	dirPath := filepath.Join(tempDir, "subdir")
	if err := os.Mkdir(dirPath, 0755); err != nil {
		t.Fatalf("Test 3 setup failed: Could not create temp subdir %q: %v", dirPath, err)
	}
	if FileExists(dirPath) {
		t.Errorf("Test 3 failed: FileExists(%q) on a directory returned true, want false", dirPath)
	}

	// Test 4: Path is empty string
	if FileExists("") {
		t.Errorf("Test 4 failed: FileExists(\"\") returned true, want false")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Spaces", "My Robot Toolbox", "my-robot-toolbox"},
		{"Special Chars", "Toolbox!@#$%^&*()_+=v2", "toolbox-v2"},
		{"Already Valid", "valid-name-123", "valid-name-123"},
		{"Mixed Case", "SomeMixed_Case", "somemixed-case"},
		{"Leading/Trailing Spaces", "  leading and trailing  ", "leading-and-trailing"},
		{"Empty String", "", "toolbox"},
		{"Only Special Chars", "!@#$", "toolbox"},
		{"Unicode (basic test)", "你好世界", "toolbox"},
		{"With Periods", "file.name.xml", "file-name-xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slug(tt.input)
			if got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := Slug(got); again != got {
				t.Errorf("Slug is not idempotent: Slug(%q) = %q", got, again)
			}
		})
	}
}
