package renderer

const surfaceVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;

uniform mat4 uViewProj;

out vec3 vNormal;
out vec3 vWorldPos;
out vec2 vTexCoord;

void main() {
	vNormal = aNormal;
	vWorldPos = aPosition;
	vTexCoord = aTexCoord;
	gl_Position = uViewProj * vec4(aPosition, 1.0);
}
`

const surfaceFragmentShader = `
#version 410 core

in vec3 vNormal;
in vec3 vWorldPos;
in vec2 vTexCoord;

uniform vec4 uColor;
uniform bool uUseTexture;
uniform sampler2D uTexture;
uniform vec3 uEye;
uniform bool uHighlight;
uniform float uAmbient;
uniform float uDiffuse;

out vec4 FragColor;

void main() {
	// Headlight shading, two-sided so rooms can be viewed from inside.
	vec3 toEye = normalize(uEye - vWorldPos);
	float diffuse = abs(dot(normalize(vNormal), toEye));
	vec3 base = uColor.rgb;
	if (uUseTexture) {
		base *= texture(uTexture, vTexCoord).rgb;
	}
	if (uHighlight) {
		base = mix(base, vec3(1.0, 0.85, 0.3), 0.35);
	}
	FragColor = vec4(base * (uAmbient + uDiffuse * diffuse), uColor.a);
}
`

const markerVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec4 aColor;

uniform mat4 uViewProj;
uniform float uPointSize;

out vec4 vColor;

void main() {
	vColor = aColor;
	gl_Position = uViewProj * vec4(aPosition, 1.0);
	gl_PointSize = uPointSize;
}
`

const markerFragmentShader = `
#version 410 core

in vec4 vColor;
out vec4 FragColor;

void main() {
	vec2 d = gl_PointCoord - vec2(0.5);
	if (dot(d, d) > 0.25) {
		discard;
	}
	FragColor = vColor;
}
`
