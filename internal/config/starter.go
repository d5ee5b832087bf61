package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const defaultConfig = `{
    "server": {
        "host": "127.0.0.1:1337",
        "tls": {
            "host": "127.0.0.1:443",
            "enable": false,
            "key": "key.pem",
            "cert": "cert.pem"
        }
    },

    "routes": {
        "/": "public/index.html",
        "/usage": "public/usage.hbs",
        "/blog": "public/blog/"
    },

    "static": {
        "directory": "public/assets",
        "served_from": "/assets",
        "error_pages": {
            "404": "public/404.html"
        }
    },

    "template": {
        "partials": {
            "header": "public/header.hbs"
        },
        "variables": {
            "app_name": "Binserve"
        }
    },

    "config": {
        "enable_hot_reload": true,
        "fast_mem_cache": true,
        "enable_cache_control": true,
        "enable_directory_listing": true,
        "minify_html": false,
        "follow_symlinks": false,
        "enable_logging": false
    },

    "insert_headers": {
        "x-greetings": "hellooo"
    }
}
`

var starterFiles = map[string]string{
	"public/index.html": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>binserve</title>
    <link rel="stylesheet" href="/assets/css/styles.css">
</head>
<body>
    <main>
        <h1>Hello, universe!</h1>
        <p>binserve is up and running. Edit <code>public/index.html</code> and reload.</p>
        <p><a href="/usage">Usage</a></p>
    </main>
</body>
</html>
`,
	"public/404.html": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>404 Not Found</title>
    <link rel="stylesheet" href="/assets/css/styles.css">
</head>
<body>
    <main>
        <h1>404</h1>
        <p>The page you are looking for does not exist.</p>
        <p><a href="/">Home</a></p>
    </main>
</body>
</html>
`,
	"public/header.hbs": `<header>
    <h1>{{app_name}}</h1>
    <nav><a href="/">Home</a> <a href="/usage">Usage</a> <a href="/blog">Blog</a></nav>
</header>
`,
	"public/usage.hbs": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>{{app_name}} usage</title>
    <link rel="stylesheet" href="/assets/css/styles.css">
</head>
<body>
    {{> header}}
    <main>
        <p>Routes map URL paths to files or directories in <code>binserve.json</code>.</p>
        <p>Files ending in <code>.hbs</code> are rendered with the template variables and partials.</p>
    </main>
</body>
</html>
`,
	"public/blog/index.html": `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Blog</title></head>
<body><h1>Blog</h1><p><a href="/blog/hello.html">Hello</a></p></body>
</html>
`,
	"public/blog/hello.html": `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Hello</title></head>
<body><h1>Hello</h1><p>Every file under a directory route becomes its own route.</p></body>
</html>
`,
	"public/assets/css/styles.css": `body {
    font-family: system-ui, sans-serif;
    max-width: 48rem;
    margin: 2rem auto;
    padding: 0 1rem;
    color: #222;
}

a {
    color: #0b66c3;
}
`,
}

// StarterNeeded reports whether dir looks like a first run: neither the
// configuration file nor the public directory exists.
func StarterNeeded(dir string) bool {
	_, cfgErr := os.Stat(filepath.Join(dir, DefaultFile))
	_, pubErr := os.Stat(filepath.Join(dir, "public"))
	return errors.Is(cfgErr, fs.ErrNotExist) && errors.Is(pubErr, fs.ErrNotExist)
}

// WriteStarter writes the default configuration and the starter site into
// dir. Existing files are left untouched. It returns the files it created.
func WriteStarter(dir string) ([]string, error) {
	files := make(map[string]string, len(starterFiles)+1)
	for name, content := range starterFiles {
		files[name] = content
	}
	files[DefaultFile] = defaultConfig

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var created []string
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return created, fmt.Errorf("creating directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			return created, fmt.Errorf("writing %s: %w", name, err)
		}
		created = append(created, name)
	}

	return created, nil
}
