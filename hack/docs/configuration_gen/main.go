/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cloudops/opsscripts/pkg/operator/options"
)

const (
	genStart = "[comment]: <> (the content below is generated from hack/docs/configuration_gen/main.go)"
	genEnd   = "[comment]: <> (end docs generated content from hack/docs/configuration_gen/main.go)"
)

// flags whose environment variable is not the upper-cased flag name
var envVarOverrides = map[string]string{
	"region": "AWS_REGION",
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s path/to/markdown.md", os.Args[0])
	}
	outputFileName := os.Args[1]
	mdFile, err := os.ReadFile(outputFileName)
	if err != nil {
		log.Printf("Can't read %s file: %v", os.Args[1], err)
		os.Exit(2)
	}
	doc, err := render(string(mdFile))
	if err != nil {
		log.Fatal(err)
	}
	log.Println("writing output to", outputFileName)
	if err := os.WriteFile(outputFileName, []byte(doc), 0o644); err != nil {
		log.Fatalf("unable to write generated output to %s: %v", outputFileName, err)
	}
}

func render(md string) (string, error) {
	startDocSections := strings.Split(md, genStart)
	if len(startDocSections) != 2 {
		return "", fmt.Errorf("expected one generated comment block start but got %d", len(startDocSections)-1)
	}
	endDocSections := strings.Split(md, genEnd)
	if len(endDocSections) != 2 {
		return "", fmt.Errorf("expected one generated comment block end but got %d", len(endDocSections)-1)
	}
	topDoc := fmt.Sprintf("%s%s\n\n", startDocSections[0], genStart)
	bottomDoc := fmt.Sprintf("\n%s%s", genEnd, endDocSections[1])

	// keep the environment out of the defaults
	os.Clearenv()
	fs := flag.NewFlagSet("reclaimer", flag.ContinueOnError)
	(&options.Options{}).AddFlags(fs)

	envVarsBlock := "| Environment Variable | CLI Flag | Description |\n"
	envVarsBlock += "|--|--|--|\n"
	fs.VisitAll(func(f *flag.Flag) {
		envVar, ok := envVarOverrides[f.Name]
		if !ok {
			envVar = strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		}
		if f.DefValue == "" {
			envVarsBlock += fmt.Sprintf("| %s | %s | %s|\n", envVar, "\\-\\-"+f.Name, f.Usage)
		} else {
			envVarsBlock += fmt.Sprintf("| %s | %s | %s (default = %s)|\n", envVar, "\\-\\-"+f.Name, f.Usage, f.DefValue)
		}
	})
	return topDoc + envVarsBlock + bottomDoc, nil
}
