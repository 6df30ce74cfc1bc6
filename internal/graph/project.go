package graph

// ProjectType classifies the overall shape of the project.
type ProjectType string

const (
	ProjectApplication ProjectType = "application"
	ProjectLibrary     ProjectType = "library"
	ProjectService     ProjectType = "service"
	ProjectCLI         ProjectType = "cli"
)

// WorkspaceType classifies how the repository is organized.
type WorkspaceType string

const (
	WorkspaceSinglePackage WorkspaceType = "single_package"
	WorkspaceMonorepo      WorkspaceType = "monorepo"
	WorkspaceMicroservices WorkspaceType = "microservices"
	WorkspaceMultiPackage  WorkspaceType = "multi_package"
)

// WorkspaceInfo describes the repository organization.
type WorkspaceInfo struct {
	Type WorkspaceType `json:"workspace_type,omitempty"`
	Root string        `json:"root,omitempty"`
}

// ProjectCommands records how the project is built and verified.
type ProjectCommands struct {
	Build  string `json:"build"`
	Test   string `json:"test"`
	Lint   string `json:"lint,omitempty"`
	Format string `json:"format,omitempty"`
}

// FrameworkInfo describes a framework in use and where it shows up.
type FrameworkInfo struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Purpose string   `json:"purpose"`
	Paths   []string `json:"paths,omitempty"`
}

// LibraryInfo names a load-bearing library and why it is there.
type LibraryInfo struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
}

// TechStack summarizes the technology choices of the project.
type TechStack struct {
	PrimaryLanguage string          `json:"primary_language"`
	LanguageVersion string          `json:"language_version,omitempty"`
	Frameworks      []FrameworkInfo `json:"frameworks,omitempty"`
	BuildTools      []string        `json:"build_tools,omitempty"`
	TestFrameworks  []string        `json:"test_frameworks,omitempty"`
	KeyLibraries    []LibraryInfo   `json:"key_libraries,omitempty"`
}

// DetectedLanguage records one language found in the repository and its
// share of the source.
type DetectedLanguage struct {
	Name        string   `json:"name"`
	Percentage  float64  `json:"percentage"`
	Frameworks  []string `json:"frameworks,omitempty"`
	BuildTools  []string `json:"build_tools,omitempty"`
	MarkerFiles []string `json:"marker_files,omitempty"`
}

// ProjectMetadata is the top-level description of the analyzed project.
type ProjectMetadata struct {
	Name        string             `json:"name"`
	Type        ProjectType        `json:"project_type"`
	Description string             `json:"description,omitempty"`
	Repository  string             `json:"repository,omitempty"`
	Workspace   WorkspaceInfo      `json:"workspace"`
	TechStack   TechStack          `json:"tech_stack"`
	Languages   []DetectedLanguage `json:"languages"`
	TotalFiles  int                `json:"total_files"`
	Commands    *ProjectCommands   `json:"commands,omitempty"`
}
