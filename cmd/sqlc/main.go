// Команда sqlc: для каждого pg/<store>/query.sql собирает свой sqlc.yaml
// из .sqlc.base.yaml и кладёт сгенерированный код в pg/<store>/sql.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	defaultConfigName = "sqlc.yaml"
	generatedPackage  = "sql"
)

func generateConfig(engine *viper.Viper, version, file string) (string, error) {
	dir := filepath.Dir(file)
	engine.Set("gen.go.package", generatedPackage)
	engine.Set("gen.go.out", filepath.Join(dir, generatedPackage))
	engine.Set("queries", file)

	engineSettings := engine.AllSettings()
	delete(engineSettings, "source")

	resultConfig := viper.New()
	resultConfig.Set("version", version)
	resultConfig.Set("sql", []interface{}{engineSettings})

	bs, err := yaml.Marshal(resultConfig.AllSettings())
	if err != nil {
		return "", errors.Wrap(err, "marshal config to yaml")
	}
	_ = os.Remove(defaultConfigName)
	if err = os.WriteFile(defaultConfigName, bs, 0o644); err != nil {
		_ = os.Remove(defaultConfigName)
		return "", errors.Wrapf(err, "write %s", defaultConfigName)
	}
	return defaultConfigName, nil
}

func callSqlc(config string) error {
	cmd := exec.Command("sqlc", "generate", "--file", config)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "call sqlc: %s", string(output))
	}
	return nil
}

func queryFiles(patterns []string) ([]string, error) {
	files := make([]string, 0)
	for _, pattern := range patterns {
		f, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %q", pattern)
		}
		files = append(files, f...)
	}
	return files, nil
}

func run(basePath string, dry bool) error {
	viper.SetConfigFile(basePath)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read base config")
	}

	files, err := queryFiles(viper.GetStringSlice("sql.0.source"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no query files matched sql.0.source")
	}

	engine := viper.Sub("sql.0")
	if engine == nil {
		return errors.New("has no sql.0 in config")
	}
	engine.Set("schema", viper.GetString("sql.0.schema"))

	defer func() { _ = os.Remove(defaultConfigName) }()
	for _, file := range files {
		configFile, gErr := generateConfig(engine, viper.GetString("version"), file)
		if gErr != nil {
			return errors.Wrapf(gErr, "generate config for %s", file)
		}
		if dry {
			fmt.Printf("%s -> %s\n", file, filepath.Join(filepath.Dir(file), generatedPackage))
			continue
		}
		if cErr := callSqlc(configFile); cErr != nil {
			return errors.Wrap(cErr, file)
		}
		fmt.Printf("%s file complete\n", file)
	}
	fmt.Println("done")
	return nil
}

func main() {
	base := flag.String("base", ".sqlc.base.yaml", "base sqlc config")
	dry := flag.Bool("dry", false, "only print what would be generated")
	flag.Parse()

	if err := run(*base, *dry); err != nil {
		log.Fatalf("sqlc: %v", err)
	}
}
